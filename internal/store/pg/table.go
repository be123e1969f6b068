package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"assetdesk.org/internal/inventory"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
	pgErrCheckViolation      = "23514"
	pgErrNotNullViolation    = "23502"
)

// table builds single-table SQL from a schema description.
type table[T any] struct {
	q      querier
	schema *inventory.Schema[T]
}

func (t *table[T]) selectList() string {
	cols := append([]string{"id"}, t.schema.Columns...)
	cols = append(cols, "created_at")
	if !t.schema.Immutable {
		cols = append(cols, "updated_at")
	}
	return strings.Join(cols, ", ")
}

func (t *table[T]) dest(rec *T) []any {
	id, created, updated := t.schema.Meta(rec)
	out := append([]any{id}, t.schema.Fields(rec)...)
	out = append(out, created)
	if !t.schema.Immutable {
		out = append(out, updated)
	}
	return out
}

// toUTC normalizes scanned timestamps; the driver returns them in time.Local.
func toUTC(dest []any) {
	for _, d := range dest {
		switch v := d.(type) {
		case *time.Time:
			*v = v.UTC()
		case **time.Time:
			if *v != nil {
				u := (*v).UTC()
				*v = &u
			}
		}
	}
}

// where renders equality filters starting at placeholder $next.
func (t *table[T]) where(filters []inventory.Filter, next int) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}
	var (
		parts []string
		args  []any
	)
	for _, f := range filters {
		if !t.schema.HasColumn(f.Column) {
			return "", nil, fmt.Errorf("%s: unknown column %q", t.schema.Table, f.Column)
		}
		if f.Value == nil {
			parts = append(parts, f.Column+" is null")
			continue
		}
		parts = append(parts, fmt.Sprintf("%s = $%d", f.Column, next))
		args = append(args, f.Value)
		next++
	}
	return " where " + strings.Join(parts, " and "), args, nil
}

func (t *table[T]) List(ctx context.Context, q inventory.Query) ([]T, error) {
	page, err := q.Page.Normalize()
	if err != nil {
		return nil, err
	}
	clause, args, err := t.where(q.Where, 1)
	if err != nil {
		return nil, err
	}
	n := len(args)
	query := fmt.Sprintf("select %s from %s%s order by id asc limit $%d offset $%d",
		t.selectList(), t.schema.Table, clause, n+1, n+2)
	args = append(args, page.Limit, page.Offset)

	rows, err := t.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var rec T
		dest := t.dest(&rec)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		toUTC(dest)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *table[T]) Count(ctx context.Context, where ...inventory.Filter) (int, error) {
	clause, args, err := t.where(where, 1)
	if err != nil {
		return 0, err
	}
	var n int
	err = t.q.QueryRowContext(ctx, "select count(*) from "+t.schema.Table+clause, args...).Scan(&n)
	return n, err
}

func (t *table[T]) Get(ctx context.Context, id int64) (T, error) {
	var rec T
	dest := t.dest(&rec)
	err := t.q.QueryRowContext(ctx,
		fmt.Sprintf("select %s from %s where id = $1", t.selectList(), t.schema.Table), id,
	).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		var zero T
		return zero, fmt.Errorf("%s %d %w", t.schema.Table, id, inventory.ErrNotFound)
	}
	if err != nil {
		var zero T
		return zero, err
	}
	toUTC(dest)
	return rec, nil
}

func placeholders(from, n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(ps, ", ")
}

func (t *table[T]) Insert(ctx context.Context, rec *T) error {
	id, created, updated := t.schema.Meta(rec)
	cols := append(append([]string{}, t.schema.Columns...), "created_at")
	args := append(t.schema.Fields(rec), *created)
	if !t.schema.Immutable {
		cols = append(cols, "updated_at")
		args = append(args, *updated)
	}
	query := fmt.Sprintf("insert into %s (%s) values (%s) returning id",
		t.schema.Table, strings.Join(cols, ", "), placeholders(1, len(cols)))
	if err := t.q.QueryRowContext(ctx, query, args...).Scan(id); err != nil {
		return t.mapError(err, false)
	}
	return nil
}

func (t *table[T]) Update(ctx context.Context, rec *T) error {
	if t.schema.Immutable {
		return fmt.Errorf("%s is append-only", t.schema.Table)
	}
	id, _, updated := t.schema.Meta(rec)
	sets := make([]string, 0, len(t.schema.Columns)+1)
	for i, c := range t.schema.Columns {
		sets = append(sets, fmt.Sprintf("%s = $%d", c, i+1))
	}
	n := len(t.schema.Columns)
	sets = append(sets, fmt.Sprintf("updated_at = $%d", n+1))
	args := append(t.schema.Fields(rec), *updated, *id)
	query := fmt.Sprintf("update %s set %s where id = $%d", t.schema.Table, strings.Join(sets, ", "), n+2)

	res, err := t.q.ExecContext(ctx, query, args...)
	if err != nil {
		return t.mapError(err, false)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return fmt.Errorf("%s %d %w", t.schema.Table, *id, inventory.ErrNotFound)
	}
	return nil
}

func (t *table[T]) Delete(ctx context.Context, id int64) error {
	res, err := t.q.ExecContext(ctx, "delete from "+t.schema.Table+" where id = $1", id)
	if err != nil {
		return t.mapError(err, true)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return fmt.Errorf("%s %d %w", t.schema.Table, id, inventory.ErrNotFound)
	}
	return nil
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// mapError turns constraint violations into inventory sentinels. A foreign
// key violation means a dangling reference on write and a restricted
// dependent on delete.
func (t *table[T]) mapError(err error, deleting bool) error {
	pgErr, ok := maybePgError(err)
	if !ok {
		return err
	}
	switch pgErr.Code {
	case pgErrUniqueViolation:
		return fmt.Errorf("%s %w", constraintLabel(pgErr), inventory.ErrConflict)
	case pgErrForeignKeyViolation:
		if deleting {
			return fmt.Errorf("%s row %w (%s)", t.schema.Table, inventory.ErrInUse, pgErr.ConstraintName)
		}
		return fmt.Errorf("%s %w", constraintLabel(pgErr), inventory.ErrReference)
	case pgErrCheckViolation, pgErrNotNullViolation:
		return fmt.Errorf("%w: %s", inventory.ErrValidation, pgErr.Message)
	}
	return err
}

func constraintLabel(pgErr *pgconn.PgError) string {
	if pgErr.ConstraintName != "" {
		return pgErr.ConstraintName
	}
	return pgErr.TableName
}

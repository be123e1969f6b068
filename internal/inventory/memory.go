package inventory

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"sync"
)

// InMemory implements Store in process. Transactions are serialized and work
// on a private copy of every table that replaces the live state on commit.
type InMemory struct {
	mu     sync.Mutex
	tables map[string]*memRows
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{tables: make(map[string]*memRows)}
}

var _ Store = (*InMemory)(nil)

type memRows struct {
	seq  int64
	ids  []int64 // ascending
	rows map[int64]any
}

func (r *memRows) clone() *memRows {
	out := &memRows{seq: r.seq, ids: slices.Clone(r.ids), rows: make(map[int64]any, len(r.rows))}
	for k, v := range r.rows {
		out.rows[k] = v
	}
	return out
}

func (s *InMemory) InTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := make(map[string]*memRows, len(s.tables))
	for name, rows := range s.tables {
		work[name] = rows.clone()
	}
	if err := fn(&memTx{tables: work}); err != nil {
		return err
	}
	s.tables = work
	return nil
}

func (s *InMemory) Ping(ctx context.Context) error { return ctx.Err() }

type memTx struct {
	tables map[string]*memRows
}

func (t *memTx) rows(name string) *memRows {
	r, ok := t.tables[name]
	if !ok {
		r = &memRows{rows: make(map[int64]any)}
		t.tables[name] = r
	}
	return r
}

func memTableOf[T any](tx *memTx, s *Schema[T]) Table[T] {
	return &memTable[T]{data: tx.rows(s.Table), schema: s}
}

func (t *memTx) Departments() Table[Department]   { return memTableOf(t, DepartmentSchema) }
func (t *memTx) Users() Table[User]               { return memTableOf(t, UserSchema) }
func (t *memTx) Categories() Table[AssetCategory] { return memTableOf(t, CategorySchema) }
func (t *memTx) Locations() Table[Location]       { return memTableOf(t, LocationSchema) }
func (t *memTx) Assets() Table[Asset]             { return memTableOf(t, AssetSchema) }
func (t *memTx) History() Table[AssetHistory]     { return memTableOf(t, HistorySchema) }
func (t *memTx) Reports() Table[Report]           { return memTableOf(t, ReportSchema) }

type memTable[T any] struct {
	data   *memRows
	schema *Schema[T]
}

// deref follows pointers so that *string and string compare equal. A nil
// pointer is SQL NULL.
func deref(v any) any {
	rv := reflect.ValueOf(v)
	for rv.IsValid() && rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	return rv.Interface()
}

func (t *memTable[T]) column(rec *T, name string) (any, error) {
	if name == "id" {
		id, _, _ := t.schema.Meta(rec)
		return *id, nil
	}
	i := t.schema.ColumnIndex(name)
	if i < 0 {
		return nil, fmt.Errorf("%s: unknown column %q", t.schema.Table, name)
	}
	return deref(t.schema.Fields(rec)[i]), nil
}

func (t *memTable[T]) matches(rec *T, where []Filter) (bool, error) {
	for _, f := range where {
		got, err := t.column(rec, f.Column)
		if err != nil {
			return false, err
		}
		want := deref(f.Value)
		// NULL never equals anything, as in SQL.
		if got == nil || want == nil || got != want {
			return false, nil
		}
	}
	return true, nil
}

func (t *memTable[T]) List(ctx context.Context, q Query) ([]T, error) {
	page, err := q.Page.Normalize()
	if err != nil {
		return nil, err
	}
	out := []T{}
	if page.Limit == 0 {
		return out, nil
	}
	skipped := 0
	for _, id := range t.data.ids {
		rec := t.data.rows[id].(T)
		ok, err := t.matches(&rec, q.Where)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if skipped < page.Offset {
			skipped++
			continue
		}
		out = append(out, rec)
		if len(out) == page.Limit {
			break
		}
	}
	return out, nil
}

func (t *memTable[T]) Count(ctx context.Context, where ...Filter) (int, error) {
	n := 0
	for _, id := range t.data.ids {
		rec := t.data.rows[id].(T)
		ok, err := t.matches(&rec, where)
		if err != nil {
			return 0, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

func (t *memTable[T]) Get(ctx context.Context, id int64) (T, error) {
	v, ok := t.data.rows[id]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s %d %w", t.schema.Table, id, ErrNotFound)
	}
	return v.(T), nil
}

// checkUnique emulates the unique indexes. NULL values are never duplicates.
func (t *memTable[T]) checkUnique(rec *T, self int64) error {
	for _, col := range t.schema.Unique {
		v, err := t.column(rec, col)
		if err != nil {
			return err
		}
		if v == nil {
			continue
		}
		for _, id := range t.data.ids {
			if id == self {
				continue
			}
			other := t.data.rows[id].(T)
			ov, _ := t.column(&other, col)
			if ov == v {
				return fmt.Errorf("%s %v %w", col, v, ErrConflict)
			}
		}
	}
	return nil
}

func (t *memTable[T]) Insert(ctx context.Context, rec *T) error {
	if err := t.checkUnique(rec, 0); err != nil {
		return err
	}
	id, _, _ := t.schema.Meta(rec)
	t.data.seq++
	*id = t.data.seq
	t.data.ids = append(t.data.ids, *id)
	t.data.rows[*id] = *rec
	return nil
}

func (t *memTable[T]) Update(ctx context.Context, rec *T) error {
	if t.schema.Immutable {
		return fmt.Errorf("%s is append-only", t.schema.Table)
	}
	id, _, _ := t.schema.Meta(rec)
	if _, ok := t.data.rows[*id]; !ok {
		return fmt.Errorf("%s %d %w", t.schema.Table, *id, ErrNotFound)
	}
	if err := t.checkUnique(rec, *id); err != nil {
		return err
	}
	t.data.rows[*id] = *rec
	return nil
}

func (t *memTable[T]) Delete(ctx context.Context, id int64) error {
	if _, ok := t.data.rows[id]; !ok {
		return fmt.Errorf("%s %d %w", t.schema.Table, id, ErrNotFound)
	}
	delete(t.data.rows, id)
	if i, found := slices.BinarySearch(t.data.ids, id); found {
		t.data.ids = slices.Delete(t.data.ids, i, i+1)
	}
	return nil
}

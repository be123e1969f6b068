package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"assetdesk.org/internal/inventory"
)

// Store implements inventory.Store on PostgreSQL through database/sql.
type Store struct {
	db *sql.DB
}

var _ inventory.Store = (*Store)(nil)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// New wraps an existing handle, e.g. one from sqlmock.
func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Ping(ctx context.Context) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	return s.db.PingContext(ctx)
}

// InTx runs fn inside one database transaction and commits when fn succeeds.
func (s *Store) InTx(ctx context.Context, fn func(inventory.Tx) error) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&pgTx{q: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type pgTx struct {
	q querier
}

func (t *pgTx) Departments() inventory.Table[inventory.Department] {
	return &table[inventory.Department]{q: t.q, schema: inventory.DepartmentSchema}
}

func (t *pgTx) Users() inventory.Table[inventory.User] {
	return &table[inventory.User]{q: t.q, schema: inventory.UserSchema}
}

func (t *pgTx) Categories() inventory.Table[inventory.AssetCategory] {
	return &table[inventory.AssetCategory]{q: t.q, schema: inventory.CategorySchema}
}

func (t *pgTx) Locations() inventory.Table[inventory.Location] {
	return &table[inventory.Location]{q: t.q, schema: inventory.LocationSchema}
}

func (t *pgTx) Assets() inventory.Table[inventory.Asset] {
	return &table[inventory.Asset]{q: t.q, schema: inventory.AssetSchema}
}

func (t *pgTx) History() inventory.Table[inventory.AssetHistory] {
	return &table[inventory.AssetHistory]{q: t.q, schema: inventory.HistorySchema}
}

func (t *pgTx) Reports() inventory.Table[inventory.Report] {
	return &table[inventory.Report]{q: t.q, schema: inventory.ReportSchema}
}

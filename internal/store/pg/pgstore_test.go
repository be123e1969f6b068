package pg

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"assetdesk.org/internal/inventory"
)

var departmentCols = []string{"id", "name", "code", "description", "parent_id", "created_at", "updated_at"}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestInsertReturnsID(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(
		"insert into departments (name, code, description, parent_id, created_at, updated_at) values ($1, $2, $3, $4, $5, $6) returning id",
	)).WithArgs("Ops", "OPS", nil, nil, now, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectCommit()

	d := inventory.Department{Name: "Ops", Code: "OPS", CreatedAt: now, UpdatedAt: now}
	err := store.InTx(context.Background(), func(tx inventory.Tx) error {
		return tx.Departments().Insert(context.Background(), &d)
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}
	if d.ID != 7 {
		t.Fatalf("expected id 7, got %d", d.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUniqueViolationMapsToConflict(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("insert into departments").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "departments_code_key"})
	mock.ExpectRollback()

	err := store.InTx(context.Background(), func(tx inventory.Tx) error {
		return tx.Departments().Insert(context.Background(), &inventory.Department{Name: "Ops", Code: "OPS"})
	})
	if !errors.Is(err, inventory.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestForeignKeyViolationMapping(t *testing.T) {
	store, mock := newMockStore(t)
	fk := &pgconn.PgError{Code: pgErrForeignKeyViolation, ConstraintName: "assets_category_id_fkey"}

	mock.ExpectBegin()
	mock.ExpectQuery("insert into assets").WillReturnError(fk)
	mock.ExpectRollback()
	err := store.InTx(context.Background(), func(tx inventory.Tx) error {
		return tx.Assets().Insert(context.Background(), &inventory.Asset{AssetNumber: "A", CategoryID: 9})
	})
	if !errors.Is(err, inventory.ErrReference) {
		t.Fatalf("expected ErrReference on insert, got %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("delete from asset_categories where id = $1")).WithArgs(int64(9)).WillReturnError(fk)
	mock.ExpectRollback()
	err = store.InTx(context.Background(), func(tx inventory.Tx) error {
		return tx.Categories().Delete(context.Background(), 9)
	})
	if !errors.Is(err, inventory.ErrInUse) {
		t.Fatalf("expected ErrInUse on delete, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetMissingRowIsNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("select id, name, code, description, parent_id, created_at, updated_at from departments where id = $1")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(departmentCols))
	mock.ExpectRollback()

	err := store.InTx(context.Background(), func(tx inventory.Tx) error {
		_, err := tx.Departments().Get(context.Background(), 3)
		return err
	})
	if !errors.Is(err, inventory.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListAppliesFiltersAndPage(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600))

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(
		"select id, name, code, description, parent_id, created_at, updated_at from departments where parent_id = $1 order by id asc limit $2 offset $3",
	)).WithArgs(int64(1), 2, 4).
		WillReturnRows(sqlmock.NewRows(departmentCols).
			AddRow(int64(5), "A", "A", "desc", int64(1), created, created).
			AddRow(int64(6), "B", "B", nil, int64(1), created, created))
	mock.ExpectCommit()

	var got []inventory.Department
	err := store.InTx(context.Background(), func(tx inventory.Tx) error {
		rows, err := tx.Departments().List(context.Background(), inventory.Query{
			Page:  inventory.Page{Offset: 4, Limit: 2},
			Where: []inventory.Filter{inventory.Where("parent_id", int64(1))},
		})
		got = rows
		return err
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}
	if len(got) != 2 || got[0].ID != 5 || got[1].ID != 6 {
		t.Fatalf("unexpected rows: %+v", got)
	}
	if got[0].Description == nil || *got[0].Description != "desc" || got[1].Description != nil {
		t.Fatalf("nullable column not scanned: %+v", got)
	}
	if got[0].CreatedAt.Location() != time.UTC || !got[0].CreatedAt.Equal(created) {
		t.Fatalf("timestamp not normalized to UTC: %v", got[0].CreatedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListRejectsUnknownColumn(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	err := store.InTx(context.Background(), func(tx inventory.Tx) error {
		_, err := tx.Users().List(context.Background(), inventory.Query{
			Where: []inventory.Filter{inventory.Where("password", "x")},
		})
		return err
	})
	if err == nil {
		t.Fatal("expected error for unknown column")
	}
}

func TestUpdateMissingRowIsNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(
		"update locations set name = $1, building = $2, floor = $3, room = $4, description = $5, updated_at = $6 where id = $7",
	)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.InTx(context.Background(), func(tx inventory.Tx) error {
		return tx.Locations().Update(context.Background(), &inventory.Location{ID: 11, Name: "HQ"})
	})
	if !errors.Is(err, inventory.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHistoryIsAppendOnly(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	err := store.InTx(context.Background(), func(tx inventory.Tx) error {
		return tx.History().Update(context.Background(), &inventory.AssetHistory{ID: 1})
	})
	if err == nil {
		t.Fatal("expected update of history to fail")
	}
}

func TestCountWithFilter(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("select count(*) from assets where owner_id = $1")).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))
	mock.ExpectCommit()

	var n int
	err := store.InTx(context.Background(), func(tx inventory.Tx) error {
		var err error
		n, err = tx.Assets().Count(context.Background(), inventory.Where("owner_id", int64(4)))
		return err
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3, got %d", n)
	}
}

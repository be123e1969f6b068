package inventory

import (
	"context"
	"time"
)

// Store is the persistence gateway. InTx runs fn in a single transaction:
// a nil return commits, anything else rolls back.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
}

// Tx exposes the entity tables bound to one transaction.
type Tx interface {
	Departments() Table[Department]
	Users() Table[User]
	Categories() Table[AssetCategory]
	Locations() Table[Location]
	Assets() Table[Asset]
	History() Table[AssetHistory]
	Reports() Table[Report]
}

// Filter is an equality condition on a schema column.
type Filter struct {
	Column string
	Value  any
}

// Where builds a filter.
func Where(column string, value any) Filter { return Filter{Column: column, Value: value} }

// Query combines pagination with optional equality filters.
type Query struct {
	Page
	Where []Filter
}

// Table is the generic single-table gateway. Rows are always returned in
// primary-key order. Insert assigns the id; timestamps are taken from the record.
type Table[T any] interface {
	List(ctx context.Context, q Query) ([]T, error)
	Count(ctx context.Context, where ...Filter) (int, error)
	Get(ctx context.Context, id int64) (T, error)
	Insert(ctx context.Context, rec *T) error
	Update(ctx context.Context, rec *T) error
	Delete(ctx context.Context, id int64) error
}

// Schema maps a record type onto its table. Fields returns pointers to the
// writable columns in Columns order; the same pointers serve as scan
// destinations and as statement arguments.
type Schema[T any] struct {
	Table     string
	Columns   []string
	Unique    []string
	Immutable bool // no updated_at column
	Fields    func(*T) []any
	Meta      func(*T) (id *int64, createdAt, updatedAt *time.Time)
}

// HasColumn reports whether name is a filterable column of the table.
func (s *Schema[T]) HasColumn(name string) bool {
	if name == "id" {
		return true
	}
	for _, c := range s.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// ColumnIndex returns the position of name in Columns, or -1.
func (s *Schema[T]) ColumnIndex(name string) int {
	for i, c := range s.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

var DepartmentSchema = &Schema[Department]{
	Table:   "departments",
	Columns: []string{"name", "code", "description", "parent_id"},
	Unique:  []string{"name", "code"},
	Fields: func(d *Department) []any {
		return []any{&d.Name, &d.Code, &d.Description, &d.ParentID}
	},
	Meta: func(d *Department) (*int64, *time.Time, *time.Time) {
		return &d.ID, &d.CreatedAt, &d.UpdatedAt
	},
}

var UserSchema = &Schema[User]{
	Table:   "users",
	Columns: []string{"username", "email", "full_name", "department_id", "is_admin", "is_active", "ad_user_id", "password_hash"},
	Unique:  []string{"username", "email"},
	Fields: func(u *User) []any {
		return []any{&u.Username, &u.Email, &u.FullName, &u.DepartmentID, &u.IsAdmin, &u.IsActive, &u.ADUserID, &u.PasswordHash}
	},
	Meta: func(u *User) (*int64, *time.Time, *time.Time) {
		return &u.ID, &u.CreatedAt, &u.UpdatedAt
	},
}

var CategorySchema = &Schema[AssetCategory]{
	Table:   "asset_categories",
	Columns: []string{"name", "description", "asset_type"},
	Unique:  []string{"name"},
	Fields: func(c *AssetCategory) []any {
		return []any{&c.Name, &c.Description, &c.AssetType}
	},
	Meta: func(c *AssetCategory) (*int64, *time.Time, *time.Time) {
		return &c.ID, &c.CreatedAt, &c.UpdatedAt
	},
}

var LocationSchema = &Schema[Location]{
	Table:   "locations",
	Columns: []string{"name", "building", "floor", "room", "description"},
	Unique:  []string{"name"},
	Fields: func(l *Location) []any {
		return []any{&l.Name, &l.Building, &l.Floor, &l.Room, &l.Description}
	},
	Meta: func(l *Location) (*int64, *time.Time, *time.Time) {
		return &l.ID, &l.CreatedAt, &l.UpdatedAt
	},
}

var AssetSchema = &Schema[Asset]{
	Table: "assets",
	Columns: []string{
		"asset_number", "name", "description", "category_id", "asset_type", "status",
		"purchase_date", "purchase_price", "depreciation_rate", "warranty_expiry",
		"owner_id", "department_id", "location_id", "serial_number", "model", "manufacturer",
	},
	Unique: []string{"asset_number", "serial_number"},
	Fields: func(a *Asset) []any {
		return []any{
			&a.AssetNumber, &a.Name, &a.Description, &a.CategoryID, &a.AssetType, &a.Status,
			&a.PurchaseDate, &a.PurchasePrice, &a.DepreciationRate, &a.WarrantyExpiry,
			&a.OwnerID, &a.DepartmentID, &a.LocationID, &a.SerialNumber, &a.Model, &a.Manufacturer,
		}
	},
	Meta: func(a *Asset) (*int64, *time.Time, *time.Time) {
		return &a.ID, &a.CreatedAt, &a.UpdatedAt
	},
}

var HistorySchema = &Schema[AssetHistory]{
	Table:     "asset_histories",
	Columns:   []string{"asset_id", "user_id", "change_type", "old_value", "new_value", "description"},
	Immutable: true,
	Fields: func(h *AssetHistory) []any {
		return []any{&h.AssetID, &h.UserID, &h.ChangeType, &h.OldValue, &h.NewValue, &h.Description}
	},
	Meta: func(h *AssetHistory) (*int64, *time.Time, *time.Time) {
		return &h.ID, &h.CreatedAt, nil
	},
}

var ReportSchema = &Schema[Report]{
	Table:   "reports",
	Columns: []string{"title", "report_type", "filters", "created_by_id"},
	Fields: func(r *Report) []any {
		return []any{&r.Title, &r.ReportType, &r.Filters, &r.CreatedByID}
	},
	Meta: func(r *Report) (*int64, *time.Time, *time.Time) {
		return &r.ID, &r.CreatedAt, &r.UpdatedAt
	},
}

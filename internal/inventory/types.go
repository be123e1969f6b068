package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("already in use")
	ErrReference    = errors.New("does not exist")
	ErrInUse        = errors.New("is still referenced")
	ErrUnauthorized = errors.New("invalid username or password")
)

// Status is the lifecycle state of an asset.
type Status string

const (
	StatusActive      Status = "active"
	StatusInactive    Status = "inactive"
	StatusMaintenance Status = "maintenance"
	StatusRetired     Status = "retired"
	StatusDamaged     Status = "damaged"
)

var statuses = []Status{StatusActive, StatusInactive, StatusMaintenance, StatusRetired, StatusDamaged}

// Valid reports whether s is one of the defined statuses.
func (s Status) Valid() bool {
	for _, v := range statuses {
		if s == v {
			return true
		}
	}
	return false
}

// ParseStatus rejects anything outside the closed status set.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: status must be one of %v, got %q", ErrValidation, statuses, raw)
	}
	return s, nil
}

// Well-known asset types. The tag is open: other values are accepted.
const (
	TypePhysicalServer = "physical_server"
	TypeVirtualServer  = "virtual_server"
	TypeFirewall       = "firewall"
	TypeAllInOne       = "all_in_one"
	TypePhone          = "phone"
	TypeLaptop         = "laptop"
	TypeDesktop        = "desktop"
	TypePrinter        = "printer"
	TypeNetworkSwitch  = "network_switch"
	TypeRouter         = "router"
	TypeUPS            = "ups"
	TypeOther          = "other"
)

type Department struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Description *string   `json:"description"`
	ParentID    *int64    `json:"parent_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	DepartmentID *int64    `json:"department_id"`
	IsAdmin      bool      `json:"is_admin"`
	IsActive     bool      `json:"is_active"`
	ADUserID     *string   `json:"ad_user_id"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type AssetCategory struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	AssetType   string    `json:"asset_type"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Location struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Building    *string   `json:"building"`
	Floor       *int64    `json:"floor"`
	Room        *string   `json:"room"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Asset is a single tracked IT asset. Money and rates are decimals, never floats.
type Asset struct {
	ID               int64               `json:"id"`
	AssetNumber      string              `json:"asset_number"`
	Name             string              `json:"name"`
	Description      *string             `json:"description"`
	CategoryID       int64               `json:"category_id"`
	AssetType        string              `json:"asset_type"`
	Status           Status              `json:"status"`
	PurchaseDate     *time.Time          `json:"purchase_date"`
	PurchasePrice    decimal.NullDecimal `json:"purchase_price"`
	DepreciationRate decimal.Decimal     `json:"depreciation_rate"`
	WarrantyExpiry   *time.Time          `json:"warranty_expiry"`
	OwnerID          *int64              `json:"owner_id"`
	DepartmentID     *int64              `json:"department_id"`
	LocationID       *int64              `json:"location_id"`
	SerialNumber     *string             `json:"serial_number"`
	Model            *string             `json:"model"`
	Manufacturer     *string             `json:"manufacturer"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// AssetHistory is an append-only change record; it has no update timestamp.
type AssetHistory struct {
	ID          int64     `json:"id"`
	AssetID     int64     `json:"asset_id"`
	UserID      int64     `json:"user_id"`
	ChangeType  string    `json:"change_type"`
	OldValue    *string   `json:"old_value"`
	NewValue    *string   `json:"new_value"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Report is a saved report definition. Filters is opaque serialized text.
type Report struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	ReportType  string    `json:"report_type"`
	Filters     *string   `json:"filters"`
	CreatedByID *int64    `json:"created_by_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Change types recorded automatically on asset updates.
const (
	ChangeStatus     = "status_change"
	ChangeOwner      = "owner_change"
	ChangeLocation   = "location_change"
	ChangeDepartment = "department_change"
)

// Page selects a window of rows ordered by id. A zero Limit means
// DefaultLimit unless Exact is set, in which case no rows are selected.
type Page struct {
	Offset int
	Limit  int
	Exact  bool
}

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

func (p Page) Normalize() (Page, error) {
	if p.Offset < 0 {
		return p, fmt.Errorf("%w: offset must be >= 0", ErrValidation)
	}
	if p.Limit < 0 {
		return p, fmt.Errorf("%w: limit must be >= 0", ErrValidation)
	}
	if p.Limit == 0 && !p.Exact {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	p.Exact = true
	return p, nil
}

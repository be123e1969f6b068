package inventory

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Optional is a patch field that remembers whether it was supplied at all.
// A supplied JSON null sets Null; an absent key leaves Set false.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some returns a supplied, non-null value.
func Some[T any](v T) Optional[T] { return Optional[T]{Set: true, Value: v} }

// Null returns a supplied null.
func Null[T any]() Optional[T] { return Optional[T]{Set: true, Null: true} }

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		var zero T
		o.Value = zero
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Null {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// Ptr converts a supplied value into a nullable pointer.
func (o Optional[T]) Ptr() *T {
	if o.Null {
		return nil
	}
	v := o.Value
	return &v
}

// applyPtr assigns a nullable column when the field was supplied.
func applyPtr[T any](o Optional[T], dst **T) {
	if o.Set {
		*dst = o.Ptr()
	}
}

type DepartmentPatch struct {
	Name        Optional[string] `json:"name"`
	Code        Optional[string] `json:"code"`
	Description Optional[string] `json:"description"`
	ParentID    Optional[int64]  `json:"parent_id"`
}

type UserPatch struct {
	Username     Optional[string] `json:"username"`
	Email        Optional[string] `json:"email"`
	FullName     Optional[string] `json:"full_name"`
	DepartmentID Optional[int64]  `json:"department_id"`
	IsAdmin      Optional[bool]   `json:"is_admin"`
	IsActive     Optional[bool]   `json:"is_active"`
	ADUserID     Optional[string] `json:"ad_user_id"`
	Password     Optional[string] `json:"password"`
}

type CategoryPatch struct {
	Name        Optional[string] `json:"name"`
	Description Optional[string] `json:"description"`
	AssetType   Optional[string] `json:"asset_type"`
}

type LocationPatch struct {
	Name        Optional[string] `json:"name"`
	Building    Optional[string] `json:"building"`
	Floor       Optional[int64]  `json:"floor"`
	Room        Optional[string] `json:"room"`
	Description Optional[string] `json:"description"`
}

type AssetPatch struct {
	AssetNumber      Optional[string]          `json:"asset_number"`
	Name             Optional[string]          `json:"name"`
	Description      Optional[string]          `json:"description"`
	CategoryID       Optional[int64]           `json:"category_id"`
	AssetType        Optional[string]          `json:"asset_type"`
	Status           Optional[string]          `json:"status"`
	PurchaseDate     Optional[time.Time]       `json:"purchase_date"`
	PurchasePrice    Optional[decimal.Decimal] `json:"purchase_price"`
	DepreciationRate Optional[decimal.Decimal] `json:"depreciation_rate"`
	WarrantyExpiry   Optional[time.Time]       `json:"warranty_expiry"`
	OwnerID          Optional[int64]           `json:"owner_id"`
	DepartmentID     Optional[int64]           `json:"department_id"`
	LocationID       Optional[int64]           `json:"location_id"`
	SerialNumber     Optional[string]          `json:"serial_number"`
	Model            Optional[string]          `json:"model"`
	Manufacturer     Optional[string]          `json:"manufacturer"`
}

type ReportPatch struct {
	Title       Optional[string] `json:"title"`
	ReportType  Optional[string] `json:"report_type"`
	Filters     Optional[string] `json:"filters"`
	CreatedByID Optional[int64]  `json:"created_by_id"`
}

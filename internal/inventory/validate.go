package inventory

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Create inputs. Required fields are plain values, optional ones are pointers.

type DepartmentInput struct {
	Name        string  `json:"name"`
	Code        string  `json:"code"`
	Description *string `json:"description"`
	ParentID    *int64  `json:"parent_id"`
}

type UserInput struct {
	Username     string  `json:"username"`
	Email        string  `json:"email"`
	FullName     string  `json:"full_name"`
	DepartmentID *int64  `json:"department_id"`
	IsAdmin      bool    `json:"is_admin"`
	IsActive     *bool   `json:"is_active"`
	ADUserID     *string `json:"ad_user_id"`
	Password     string  `json:"password"`
}

type CategoryInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	AssetType   string  `json:"asset_type"`
}

type LocationInput struct {
	Name        string  `json:"name"`
	Building    *string `json:"building"`
	Floor       *int64  `json:"floor"`
	Room        *string `json:"room"`
	Description *string `json:"description"`
}

type AssetInput struct {
	AssetNumber      string              `json:"asset_number"`
	Name             string              `json:"name"`
	Description      *string             `json:"description"`
	CategoryID       *int64              `json:"category_id"`
	AssetType        string              `json:"asset_type"`
	Status           string              `json:"status"`
	PurchaseDate     *time.Time          `json:"purchase_date"`
	PurchasePrice    decimal.NullDecimal `json:"purchase_price"`
	DepreciationRate decimal.NullDecimal `json:"depreciation_rate"`
	WarrantyExpiry   *time.Time          `json:"warranty_expiry"`
	OwnerID          *int64              `json:"owner_id"`
	DepartmentID     *int64              `json:"department_id"`
	LocationID       *int64              `json:"location_id"`
	SerialNumber     *string             `json:"serial_number"`
	Model            *string             `json:"model"`
	Manufacturer     *string             `json:"manufacturer"`
}

type HistoryInput struct {
	AssetID     *int64  `json:"asset_id"`
	UserID      *int64  `json:"user_id"`
	ChangeType  string  `json:"change_type"`
	OldValue    *string `json:"old_value"`
	NewValue    *string `json:"new_value"`
	Description *string `json:"description"`
}

type ReportInput struct {
	Title       string  `json:"title"`
	ReportType  string  `json:"report_type"`
	Filters     *string `json:"filters"`
	CreatedByID *int64  `json:"created_by_id"`
}

const minPasswordLen = 8

// checker accumulates field problems into a single ErrValidation.
type checker struct {
	problems []string
}

func (c *checker) addf(format string, args ...any) {
	c.problems = append(c.problems, fmt.Sprintf(format, args...))
}

func (c *checker) required(field, v string, max int) {
	if strings.TrimSpace(v) == "" {
		c.addf("%s is required", field)
		return
	}
	c.maxLen(field, v, max)
}

func (c *checker) maxLen(field, v string, max int) {
	if max > 0 && utf8.RuneCountInString(v) > max {
		c.addf("%s must be at most %d characters", field, max)
	}
}

func (c *checker) optional(field string, v *string, max int) {
	if v != nil {
		c.maxLen(field, *v, max)
	}
}

func (c *checker) email(field, v string) {
	if strings.TrimSpace(v) == "" {
		c.addf("%s is required", field)
		return
	}
	addr, err := mail.ParseAddress(v)
	if err != nil || addr.Address != v {
		c.addf("%s is not a valid email address", field)
		return
	}
	c.maxLen(field, v, 100)
}

func (c *checker) password(field, v string) {
	if utf8.RuneCountInString(v) < minPasswordLen {
		c.addf("%s must be at least %d characters", field, minPasswordLen)
	}
	// bcrypt ignores input past 72 bytes.
	if len(v) > 72 {
		c.addf("%s must be at most 72 bytes", field)
	}
}

// Column sizes for numeric(precision, scale).
const (
	pricePrecision, priceScale = 12, 2
	ratePrecision, rateScale   = 5, 2
)

// amount checks d fits a non-negative numeric(precision, scale) column.
func (c *checker) amount(field string, d decimal.Decimal, precision, scale int32) {
	limit := decimal.New(1, precision-scale)
	switch {
	case d.IsNegative():
		c.addf("%s must be >= 0", field)
	case !d.Equal(d.Truncate(scale)):
		c.addf("%s must have at most %d decimal places", field, scale)
	case d.GreaterThanOrEqual(limit):
		c.addf("%s must be less than %s", field, limit)
	}
}

// patchString validates a supplied patch value for a NOT NULL column.
func (c *checker) patchString(field string, o Optional[string], max int) {
	if !o.Set {
		return
	}
	if o.Null {
		c.addf("%s cannot be null", field)
		return
	}
	c.required(field, o.Value, max)
}

func (c *checker) patchOptional(field string, o Optional[string], max int) {
	if o.Set && !o.Null {
		c.maxLen(field, o.Value, max)
	}
}

func (c *checker) notNull(field string, set, null bool) {
	if set && null {
		c.addf("%s cannot be null", field)
	}
}

func (c *checker) err() error {
	if len(c.problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(c.problems, "; "))
}

func (in DepartmentInput) validate() error {
	var c checker
	c.required("name", in.Name, 100)
	c.required("code", in.Code, 20)
	return c.err()
}

func (p DepartmentPatch) validate() error {
	var c checker
	c.patchString("name", p.Name, 100)
	c.patchString("code", p.Code, 20)
	return c.err()
}

func (in UserInput) validate() error {
	var c checker
	c.required("username", in.Username, 50)
	c.email("email", in.Email)
	c.required("full_name", in.FullName, 100)
	c.optional("ad_user_id", in.ADUserID, 100)
	c.password("password", in.Password)
	return c.err()
}

func (p UserPatch) validate() error {
	var c checker
	c.patchString("username", p.Username, 50)
	if p.Email.Set {
		if p.Email.Null {
			c.addf("email cannot be null")
		} else {
			c.email("email", p.Email.Value)
		}
	}
	c.patchString("full_name", p.FullName, 100)
	c.notNull("is_admin", p.IsAdmin.Set, p.IsAdmin.Null)
	c.notNull("is_active", p.IsActive.Set, p.IsActive.Null)
	c.patchOptional("ad_user_id", p.ADUserID, 100)
	if p.Password.Set {
		if p.Password.Null {
			c.addf("password cannot be null")
		} else {
			c.password("password", p.Password.Value)
		}
	}
	return c.err()
}

func (in CategoryInput) validate() error {
	var c checker
	c.required("name", in.Name, 100)
	c.required("asset_type", in.AssetType, 50)
	return c.err()
}

func (p CategoryPatch) validate() error {
	var c checker
	c.patchString("name", p.Name, 100)
	c.patchString("asset_type", p.AssetType, 50)
	return c.err()
}

func (in LocationInput) validate() error {
	var c checker
	c.required("name", in.Name, 100)
	c.optional("building", in.Building, 50)
	c.optional("room", in.Room, 50)
	return c.err()
}

func (p LocationPatch) validate() error {
	var c checker
	c.patchString("name", p.Name, 100)
	c.patchOptional("building", p.Building, 50)
	c.patchOptional("room", p.Room, 50)
	return c.err()
}

func (in AssetInput) validate() error {
	var c checker
	c.required("asset_number", in.AssetNumber, 50)
	c.required("name", in.Name, 100)
	if in.CategoryID == nil {
		c.addf("category_id is required")
	}
	c.required("asset_type", in.AssetType, 50)
	if in.Status != "" && !Status(in.Status).Valid() {
		c.addf("status must be one of %v, got %q", statuses, in.Status)
	}
	if in.PurchasePrice.Valid {
		c.amount("purchase_price", in.PurchasePrice.Decimal, pricePrecision, priceScale)
	}
	if in.DepreciationRate.Valid {
		c.amount("depreciation_rate", in.DepreciationRate.Decimal, ratePrecision, rateScale)
	}
	c.optional("serial_number", in.SerialNumber, 100)
	c.optional("model", in.Model, 100)
	c.optional("manufacturer", in.Manufacturer, 100)
	return c.err()
}

func (p AssetPatch) validate() error {
	var c checker
	c.patchString("asset_number", p.AssetNumber, 50)
	c.patchString("name", p.Name, 100)
	c.notNull("category_id", p.CategoryID.Set, p.CategoryID.Null)
	c.patchString("asset_type", p.AssetType, 50)
	if p.Status.Set {
		if p.Status.Null {
			c.addf("status cannot be null")
		} else if !Status(p.Status.Value).Valid() {
			c.addf("status must be one of %v, got %q", statuses, p.Status.Value)
		}
	}
	if p.PurchasePrice.Set && !p.PurchasePrice.Null {
		c.amount("purchase_price", p.PurchasePrice.Value, pricePrecision, priceScale)
	}
	c.notNull("depreciation_rate", p.DepreciationRate.Set, p.DepreciationRate.Null)
	if p.DepreciationRate.Set && !p.DepreciationRate.Null {
		c.amount("depreciation_rate", p.DepreciationRate.Value, ratePrecision, rateScale)
	}
	c.patchOptional("serial_number", p.SerialNumber, 100)
	c.patchOptional("model", p.Model, 100)
	c.patchOptional("manufacturer", p.Manufacturer, 100)
	return c.err()
}

func (in HistoryInput) validate() error {
	var c checker
	if in.AssetID == nil {
		c.addf("asset_id is required")
	}
	if in.UserID == nil {
		c.addf("user_id is required")
	}
	c.required("change_type", in.ChangeType, 50)
	return c.err()
}

func (in ReportInput) validate() error {
	var c checker
	c.required("title", in.Title, 200)
	c.required("report_type", in.ReportType, 50)
	return c.err()
}

func (p ReportPatch) validate() error {
	var c checker
	c.patchString("title", p.Title, 200)
	c.patchString("report_type", p.ReportType, 50)
	return c.err()
}

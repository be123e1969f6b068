package inventory

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// AssetService manages asset records. Updates made by an authenticated user
// also append history entries for status, owner, location and department.
type AssetService struct {
	*base
}

func (s *AssetService) table(tx Tx) Table[Asset] { return tx.Assets() }

func (s *AssetService) List(ctx context.Context, page Page) ([]Asset, error) {
	return listRows(ctx, s.store, s.table, page)
}

// ListByCategory returns the assets of one category; an unknown category yields none.
func (s *AssetService) ListByCategory(ctx context.Context, categoryID int64, page Page) ([]Asset, error) {
	return listRows(ctx, s.store, s.table, page, Where("category_id", categoryID))
}

// ListByDepartment returns the assets assigned to one department.
func (s *AssetService) ListByDepartment(ctx context.Context, departmentID int64, page Page) ([]Asset, error) {
	return listRows(ctx, s.store, s.table, page, Where("department_id", departmentID))
}

func (s *AssetService) Get(ctx context.Context, id int64) (Asset, error) {
	return getRow(ctx, s.store, s.table, "asset", id)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC().Truncate(time.Microsecond)
	return &v
}

func (s *AssetService) checkRefs(ctx context.Context, tx Tx, category, owner, department, location *int64) error {
	if err := ensureExists(ctx, tx.Categories(), "asset category", category); err != nil {
		return err
	}
	if err := ensureExists(ctx, tx.Users(), "owner", owner); err != nil {
		return err
	}
	if err := ensureExists(ctx, tx.Departments(), "department", department); err != nil {
		return err
	}
	return ensureExists(ctx, tx.Locations(), "location", location)
}

func (s *AssetService) Create(ctx context.Context, in AssetInput) (Asset, error) {
	if err := in.validate(); err != nil {
		return Asset{}, err
	}
	status := StatusActive
	if in.Status != "" {
		status = Status(in.Status)
	}
	rate := decimal.Zero
	if in.DepreciationRate.Valid {
		rate = in.DepreciationRate.Decimal
	}
	var out Asset
	err := s.store.InTx(ctx, func(tx Tx) error {
		t := tx.Assets()
		if err := ensureUnique(ctx, t, AssetSchema, "asset_number", in.AssetNumber, 0); err != nil {
			return err
		}
		if err := ensureUnique(ctx, t, AssetSchema, "serial_number", in.SerialNumber, 0); err != nil {
			return err
		}
		if err := s.checkRefs(ctx, tx, in.CategoryID, in.OwnerID, in.DepartmentID, in.LocationID); err != nil {
			return err
		}
		now := s.stamp()
		out = Asset{
			AssetNumber:      in.AssetNumber,
			Name:             in.Name,
			Description:      in.Description,
			CategoryID:       *in.CategoryID,
			AssetType:        in.AssetType,
			Status:           status,
			PurchaseDate:     utcPtr(in.PurchaseDate),
			PurchasePrice:    in.PurchasePrice,
			DepreciationRate: rate,
			WarrantyExpiry:   utcPtr(in.WarrantyExpiry),
			OwnerID:          in.OwnerID,
			DepartmentID:     in.DepartmentID,
			LocationID:       in.LocationID,
			SerialNumber:     in.SerialNumber,
			Model:            in.Model,
			Manufacturer:     in.Manufacturer,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		return t.Insert(ctx, &out)
	})
	return out, err
}

func (s *AssetService) Update(ctx context.Context, id int64, p AssetPatch) (Asset, error) {
	if err := p.validate(); err != nil {
		return Asset{}, err
	}
	var out Asset
	err := s.store.InTx(ctx, func(tx Tx) error {
		t := tx.Assets()
		cur, err := fetch(ctx, t, "asset", id)
		if err != nil {
			return err
		}
		before := cur

		if p.AssetNumber.Set && p.AssetNumber.Value != cur.AssetNumber {
			if err := ensureUnique(ctx, t, AssetSchema, "asset_number", p.AssetNumber.Value, id); err != nil {
				return err
			}
			cur.AssetNumber = p.AssetNumber.Value
		}
		if p.SerialNumber.Set && !p.SerialNumber.Null && !sameString(cur.SerialNumber, &p.SerialNumber.Value) {
			if err := ensureUnique(ctx, t, AssetSchema, "serial_number", p.SerialNumber.Value, id); err != nil {
				return err
			}
		}
		applyPtr(p.SerialNumber, &cur.SerialNumber)

		var category, owner, department, location *int64
		if p.CategoryID.Set && p.CategoryID.Value != cur.CategoryID {
			category = &p.CategoryID.Value
			cur.CategoryID = p.CategoryID.Value
		}
		if p.OwnerID.Set && !p.OwnerID.Null {
			owner = &p.OwnerID.Value
		}
		if p.DepartmentID.Set && !p.DepartmentID.Null {
			department = &p.DepartmentID.Value
		}
		if p.LocationID.Set && !p.LocationID.Null {
			location = &p.LocationID.Value
		}
		if err := s.checkRefs(ctx, tx, category, owner, department, location); err != nil {
			return err
		}
		applyPtr(p.OwnerID, &cur.OwnerID)
		applyPtr(p.DepartmentID, &cur.DepartmentID)
		applyPtr(p.LocationID, &cur.LocationID)

		if p.Name.Set {
			cur.Name = p.Name.Value
		}
		applyPtr(p.Description, &cur.Description)
		if p.AssetType.Set {
			cur.AssetType = p.AssetType.Value
		}
		if p.Status.Set {
			cur.Status = Status(p.Status.Value)
		}
		if p.PurchaseDate.Set {
			cur.PurchaseDate = utcPtr(p.PurchaseDate.Ptr())
		}
		if p.PurchasePrice.Set {
			cur.PurchasePrice = decimal.NullDecimal{Decimal: p.PurchasePrice.Value, Valid: !p.PurchasePrice.Null}
		}
		if p.DepreciationRate.Set {
			cur.DepreciationRate = p.DepreciationRate.Value
		}
		if p.WarrantyExpiry.Set {
			cur.WarrantyExpiry = utcPtr(p.WarrantyExpiry.Ptr())
		}
		applyPtr(p.Model, &cur.Model)
		applyPtr(p.Manufacturer, &cur.Manufacturer)

		cur.UpdatedAt = s.touch(cur.UpdatedAt)
		if err := t.Update(ctx, &cur); err != nil {
			return err
		}
		if err := s.recordChanges(ctx, tx, before, cur); err != nil {
			return err
		}
		out = cur
		return nil
	})
	return out, err
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func idText(id *int64) *string {
	if id == nil {
		return nil
	}
	v := strconv.FormatInt(*id, 10)
	return &v
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// recordChanges appends one history row per tracked field that changed. It is
// a no-op for anonymous callers since history requires a user.
func (s *AssetService) recordChanges(ctx context.Context, tx Tx, before, after Asset) error {
	who, err := actor(ctx, tx)
	if err != nil || who == nil {
		return err
	}
	var entries []AssetHistory
	add := func(kind string, from, to *string) {
		entries = append(entries, AssetHistory{
			AssetID:    after.ID,
			UserID:     who.ID,
			ChangeType: kind,
			OldValue:   from,
			NewValue:   to,
		})
	}
	if before.Status != after.Status {
		from, to := string(before.Status), string(after.Status)
		add(ChangeStatus, &from, &to)
	}
	if !sameID(before.OwnerID, after.OwnerID) {
		add(ChangeOwner, idText(before.OwnerID), idText(after.OwnerID))
	}
	if !sameID(before.LocationID, after.LocationID) {
		add(ChangeLocation, idText(before.LocationID), idText(after.LocationID))
	}
	if !sameID(before.DepartmentID, after.DepartmentID) {
		add(ChangeDepartment, idText(before.DepartmentID), idText(after.DepartmentID))
	}
	history := tx.History()
	for i := range entries {
		entries[i].CreatedAt = after.UpdatedAt
		if err := history.Insert(ctx, &entries[i]); err != nil {
			return err
		}
	}
	return nil
}

// Delete refuses while history rows reference the asset; retire it instead.
func (s *AssetService) Delete(ctx context.Context, id int64) error {
	return s.store.InTx(ctx, func(tx Tx) error {
		t := tx.Assets()
		if _, err := fetch(ctx, t, "asset", id); err != nil {
			return err
		}
		history, err := tx.History().Count(ctx, Where("asset_id", id))
		if err != nil {
			return err
		}
		if err := restrict("asset", id, dependent{history, "history entries"}); err != nil {
			return err
		}
		return t.Delete(ctx, id)
	})
}

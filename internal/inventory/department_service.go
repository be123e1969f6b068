package inventory

import (
	"context"
	"fmt"
)

// DepartmentService manages the department tree.
type DepartmentService struct {
	*base
}

func (s *DepartmentService) table(tx Tx) Table[Department] { return tx.Departments() }

func (s *DepartmentService) List(ctx context.Context, page Page) ([]Department, error) {
	return listRows(ctx, s.store, s.table, page)
}

func (s *DepartmentService) Get(ctx context.Context, id int64) (Department, error) {
	return getRow(ctx, s.store, s.table, "department", id)
}

func (s *DepartmentService) Create(ctx context.Context, in DepartmentInput) (Department, error) {
	if err := in.validate(); err != nil {
		return Department{}, err
	}
	var out Department
	err := s.store.InTx(ctx, func(tx Tx) error {
		t := tx.Departments()
		if err := ensureUnique(ctx, t, DepartmentSchema, "name", in.Name, 0); err != nil {
			return err
		}
		if err := ensureUnique(ctx, t, DepartmentSchema, "code", in.Code, 0); err != nil {
			return err
		}
		if err := ensureExists(ctx, t, "parent department", in.ParentID); err != nil {
			return err
		}
		now := s.stamp()
		out = Department{
			Name:        in.Name,
			Code:        in.Code,
			Description: in.Description,
			ParentID:    in.ParentID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return t.Insert(ctx, &out)
	})
	return out, err
}

func (s *DepartmentService) Update(ctx context.Context, id int64, p DepartmentPatch) (Department, error) {
	if err := p.validate(); err != nil {
		return Department{}, err
	}
	var out Department
	err := s.store.InTx(ctx, func(tx Tx) error {
		t := tx.Departments()
		cur, err := fetch(ctx, t, "department", id)
		if err != nil {
			return err
		}
		if p.Name.Set && p.Name.Value != cur.Name {
			if err := ensureUnique(ctx, t, DepartmentSchema, "name", p.Name.Value, id); err != nil {
				return err
			}
			cur.Name = p.Name.Value
		}
		if p.Code.Set && p.Code.Value != cur.Code {
			if err := ensureUnique(ctx, t, DepartmentSchema, "code", p.Code.Value, id); err != nil {
				return err
			}
			cur.Code = p.Code.Value
		}
		applyPtr(p.Description, &cur.Description)
		if p.ParentID.Set && !p.ParentID.Null {
			if err := s.checkParent(ctx, t, id, p.ParentID.Value); err != nil {
				return err
			}
		}
		applyPtr(p.ParentID, &cur.ParentID)
		cur.UpdatedAt = s.touch(cur.UpdatedAt)
		if err := t.Update(ctx, &cur); err != nil {
			return err
		}
		out = cur
		return nil
	})
	return out, err
}

// checkParent rejects a missing parent and any parent that would close a cycle.
func (s *DepartmentService) checkParent(ctx context.Context, t Table[Department], id, parent int64) error {
	if parent == id {
		return fmt.Errorf("%w: a department cannot be its own parent", ErrValidation)
	}
	if err := ensureExists(ctx, t, "parent department", &parent); err != nil {
		return err
	}
	seen := map[int64]bool{}
	for next := &parent; next != nil; {
		if *next == id {
			return fmt.Errorf("%w: parent_id %d would create a cycle", ErrValidation, parent)
		}
		if seen[*next] {
			break
		}
		seen[*next] = true
		d, err := t.Get(ctx, *next)
		if err != nil {
			return err
		}
		next = d.ParentID
	}
	return nil
}

func (s *DepartmentService) Delete(ctx context.Context, id int64) error {
	return s.store.InTx(ctx, func(tx Tx) error {
		t := tx.Departments()
		if _, err := fetch(ctx, t, "department", id); err != nil {
			return err
		}
		children, err := t.Count(ctx, Where("parent_id", id))
		if err != nil {
			return err
		}
		users, err := tx.Users().Count(ctx, Where("department_id", id))
		if err != nil {
			return err
		}
		assets, err := tx.Assets().Count(ctx, Where("department_id", id))
		if err != nil {
			return err
		}
		if err := restrict("department", id,
			dependent{children, "child departments"},
			dependent{users, "users"},
			dependent{assets, "assets"},
		); err != nil {
			return err
		}
		return t.Delete(ctx, id)
	})
}

package inventory

import "context"

type CategoryService struct {
	*base
}

func (s *CategoryService) table(tx Tx) Table[AssetCategory] { return tx.Categories() }

func (s *CategoryService) List(ctx context.Context, page Page) ([]AssetCategory, error) {
	return listRows(ctx, s.store, s.table, page)
}

func (s *CategoryService) Get(ctx context.Context, id int64) (AssetCategory, error) {
	return getRow(ctx, s.store, s.table, "asset category", id)
}

func (s *CategoryService) Create(ctx context.Context, in CategoryInput) (AssetCategory, error) {
	if err := in.validate(); err != nil {
		return AssetCategory{}, err
	}
	var out AssetCategory
	err := s.store.InTx(ctx, func(tx Tx) error {
		t := tx.Categories()
		if err := ensureUnique(ctx, t, CategorySchema, "name", in.Name, 0); err != nil {
			return err
		}
		now := s.stamp()
		out = AssetCategory{
			Name:        in.Name,
			Description: in.Description,
			AssetType:   in.AssetType,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return t.Insert(ctx, &out)
	})
	return out, err
}

func (s *CategoryService) Update(ctx context.Context, id int64, p CategoryPatch) (AssetCategory, error) {
	if err := p.validate(); err != nil {
		return AssetCategory{}, err
	}
	var out AssetCategory
	err := s.store.InTx(ctx, func(tx Tx) error {
		t := tx.Categories()
		cur, err := fetch(ctx, t, "asset category", id)
		if err != nil {
			return err
		}
		if p.Name.Set && p.Name.Value != cur.Name {
			if err := ensureUnique(ctx, t, CategorySchema, "name", p.Name.Value, id); err != nil {
				return err
			}
			cur.Name = p.Name.Value
		}
		applyPtr(p.Description, &cur.Description)
		if p.AssetType.Set {
			cur.AssetType = p.AssetType.Value
		}
		cur.UpdatedAt = s.touch(cur.UpdatedAt)
		if err := t.Update(ctx, &cur); err != nil {
			return err
		}
		out = cur
		return nil
	})
	return out, err
}

func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	return s.store.InTx(ctx, func(tx Tx) error {
		t := tx.Categories()
		if _, err := fetch(ctx, t, "asset category", id); err != nil {
			return err
		}
		assets, err := tx.Assets().Count(ctx, Where("category_id", id))
		if err != nil {
			return err
		}
		if err := restrict("asset category", id, dependent{assets, "assets"}); err != nil {
			return err
		}
		return t.Delete(ctx, id)
	})
}

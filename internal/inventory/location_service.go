package inventory

import "context"

type LocationService struct {
	*base
}

func (s *LocationService) table(tx Tx) Table[Location] { return tx.Locations() }

func (s *LocationService) List(ctx context.Context, page Page) ([]Location, error) {
	return listRows(ctx, s.store, s.table, page)
}

func (s *LocationService) Get(ctx context.Context, id int64) (Location, error) {
	return getRow(ctx, s.store, s.table, "location", id)
}

func (s *LocationService) Create(ctx context.Context, in LocationInput) (Location, error) {
	if err := in.validate(); err != nil {
		return Location{}, err
	}
	var out Location
	err := s.store.InTx(ctx, func(tx Tx) error {
		t := tx.Locations()
		if err := ensureUnique(ctx, t, LocationSchema, "name", in.Name, 0); err != nil {
			return err
		}
		now := s.stamp()
		out = Location{
			Name:        in.Name,
			Building:    in.Building,
			Floor:       in.Floor,
			Room:        in.Room,
			Description: in.Description,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return t.Insert(ctx, &out)
	})
	return out, err
}

func (s *LocationService) Update(ctx context.Context, id int64, p LocationPatch) (Location, error) {
	if err := p.validate(); err != nil {
		return Location{}, err
	}
	var out Location
	err := s.store.InTx(ctx, func(tx Tx) error {
		t := tx.Locations()
		cur, err := fetch(ctx, t, "location", id)
		if err != nil {
			return err
		}
		if p.Name.Set && p.Name.Value != cur.Name {
			if err := ensureUnique(ctx, t, LocationSchema, "name", p.Name.Value, id); err != nil {
				return err
			}
			cur.Name = p.Name.Value
		}
		applyPtr(p.Building, &cur.Building)
		applyPtr(p.Floor, &cur.Floor)
		applyPtr(p.Room, &cur.Room)
		applyPtr(p.Description, &cur.Description)
		cur.UpdatedAt = s.touch(cur.UpdatedAt)
		if err := t.Update(ctx, &cur); err != nil {
			return err
		}
		out = cur
		return nil
	})
	return out, err
}

func (s *LocationService) Delete(ctx context.Context, id int64) error {
	return s.store.InTx(ctx, func(tx Tx) error {
		t := tx.Locations()
		if _, err := fetch(ctx, t, "location", id); err != nil {
			return err
		}
		assets, err := tx.Assets().Count(ctx, Where("location_id", id))
		if err != nil {
			return err
		}
		if err := restrict("location", id, dependent{assets, "assets"}); err != nil {
			return err
		}
		return t.Delete(ctx, id)
	})
}

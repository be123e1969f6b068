package inventory

import "context"

// ReportService stores saved report definitions. It does not run them.
type ReportService struct {
	*base
}

func (s *ReportService) table(tx Tx) Table[Report] { return tx.Reports() }

func (s *ReportService) List(ctx context.Context, page Page) ([]Report, error) {
	return listRows(ctx, s.store, s.table, page)
}

func (s *ReportService) Get(ctx context.Context, id int64) (Report, error) {
	return getRow(ctx, s.store, s.table, "report", id)
}

// Create defaults created_by_id to the authenticated caller when omitted.
func (s *ReportService) Create(ctx context.Context, in ReportInput) (Report, error) {
	if err := in.validate(); err != nil {
		return Report{}, err
	}
	var out Report
	err := s.store.InTx(ctx, func(tx Tx) error {
		creator := in.CreatedByID
		if creator == nil {
			who, err := actor(ctx, tx)
			if err != nil {
				return err
			}
			if who != nil {
				creator = &who.ID
			}
		} else if err := ensureExists(ctx, tx.Users(), "user", creator); err != nil {
			return err
		}
		now := s.stamp()
		out = Report{
			Title:       in.Title,
			ReportType:  in.ReportType,
			Filters:     in.Filters,
			CreatedByID: creator,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return tx.Reports().Insert(ctx, &out)
	})
	return out, err
}

func (s *ReportService) Update(ctx context.Context, id int64, p ReportPatch) (Report, error) {
	if err := p.validate(); err != nil {
		return Report{}, err
	}
	var out Report
	err := s.store.InTx(ctx, func(tx Tx) error {
		t := tx.Reports()
		cur, err := fetch(ctx, t, "report", id)
		if err != nil {
			return err
		}
		if p.Title.Set {
			cur.Title = p.Title.Value
		}
		if p.ReportType.Set {
			cur.ReportType = p.ReportType.Value
		}
		applyPtr(p.Filters, &cur.Filters)
		if p.CreatedByID.Set && !p.CreatedByID.Null {
			if err := ensureExists(ctx, tx.Users(), "user", &p.CreatedByID.Value); err != nil {
				return err
			}
		}
		applyPtr(p.CreatedByID, &cur.CreatedByID)
		cur.UpdatedAt = s.touch(cur.UpdatedAt)
		if err := t.Update(ctx, &cur); err != nil {
			return err
		}
		out = cur
		return nil
	})
	return out, err
}

func (s *ReportService) Delete(ctx context.Context, id int64) error {
	return s.store.InTx(ctx, func(tx Tx) error {
		t := tx.Reports()
		if _, err := fetch(ctx, t, "report", id); err != nil {
			return err
		}
		return t.Delete(ctx, id)
	})
}

package inventory

import "context"

// HistoryService exposes the append-only asset change log.
type HistoryService struct {
	*base
}

func (s *HistoryService) table(tx Tx) Table[AssetHistory] { return tx.History() }

func (s *HistoryService) List(ctx context.Context, page Page) ([]AssetHistory, error) {
	return listRows(ctx, s.store, s.table, page)
}

func (s *HistoryService) ListByAsset(ctx context.Context, assetID int64, page Page) ([]AssetHistory, error) {
	return listRows(ctx, s.store, s.table, page, Where("asset_id", assetID))
}

func (s *HistoryService) Get(ctx context.Context, id int64) (AssetHistory, error) {
	return getRow(ctx, s.store, s.table, "history entry", id)
}

func (s *HistoryService) Create(ctx context.Context, in HistoryInput) (AssetHistory, error) {
	if err := in.validate(); err != nil {
		return AssetHistory{}, err
	}
	var out AssetHistory
	err := s.store.InTx(ctx, func(tx Tx) error {
		if err := ensureExists(ctx, tx.Assets(), "asset", in.AssetID); err != nil {
			return err
		}
		if err := ensureExists(ctx, tx.Users(), "user", in.UserID); err != nil {
			return err
		}
		out = AssetHistory{
			AssetID:     *in.AssetID,
			UserID:      *in.UserID,
			ChangeType:  in.ChangeType,
			OldValue:    in.OldValue,
			NewValue:    in.NewValue,
			Description: in.Description,
			CreatedAt:   s.stamp(),
		}
		return tx.History().Insert(ctx, &out)
	})
	return out, err
}

package usecase

import (
	"context"

	"github.com/poonnyworld/pbz-bots/internal/domain"
)

// ListShopItems returns active items, cheapest first.
func (s *Service) ListShopItems(ctx context.Context) ([]domain.Item, error) {
	return retryRead(s, "list_shop_items", func() ([]domain.Item, error) {
		return s.repo.ListActiveItems(ctx)
	})
}

func (s *Service) ListItems(ctx context.Context) ([]domain.Item, error) {
	return retryRead(s, "list_items", func() ([]domain.Item, error) {
		return s.repo.ListItems(ctx)
	})
}

// ListAccounts reports each wager counter as seen now: a counter left over
// from an earlier day reads as zero.
func (s *Service) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	accounts, err := retryRead(s, "list_accounts", func() ([]domain.Account, error) {
		return s.repo.ListAccounts(ctx)
	})
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range accounts {
		a := &accounts[i]
		a.WagerCountToday = s.flips.UsedToday(a.WagerCountToday, a.WagerWindowStart, now)
	}
	return accounts, nil
}

func (s *Service) ListRedemptions(ctx context.Context, limit int) ([]domain.Redemption, error) {
	return retryRead(s, "list_redemptions", func() ([]domain.Redemption, error) {
		return s.repo.ListRedemptions(ctx, limit)
	})
}

func (s *Service) CreateItem(ctx context.Context, item *domain.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now()
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return err
	}
	s.log.Info().Int64("item_id", item.ID).Str("name", item.Name).Msg("item created")
	return nil
}

// UpdateItem merges patch into the stored item under its row lock, so it
// serializes with purchases of the same item. Fields absent from patch keep
// their stored values.
func (s *Service) UpdateItem(ctx context.Context, id int64, patch domain.ItemPatch) (*domain.Item, error) {
	var updated domain.Item
	err := s.inTx(ctx, "update_item", func(ctx context.Context, tx domain.Tx) error {
		cur, err := tx.LockItem(ctx, id)
		if err != nil {
			return err
		}
		if cur == nil {
			return domain.ErrItemNotFound
		}
		patch.Apply(cur)
		if err := cur.Validate(); err != nil {
			return err
		}
		if err := tx.SaveItem(ctx, cur); err != nil {
			return err
		}
		updated = *cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("item_id", id).Int("stock", updated.Stock).Bool("active", updated.IsActive).Msg("item updated")
	return &updated, nil
}

package usecase

import (
	"context"
	"strconv"

	"github.com/poonnyworld/pbz-bots/internal/domain"
)

// Purchase debits the buyer, decrements finite stock and records the
// redemption in one transaction. Stock and balance are checked against the
// locked rows, so the last unit has exactly one winner.
func (s *Service) Purchase(ctx context.Context, accountID string, itemID int64) (*domain.PurchaseResult, error) {
	var res domain.PurchaseResult
	err := s.inTx(ctx, "purchase", func(ctx context.Context, tx domain.Tx) error {
		item, err := tx.LockItem(ctx, itemID)
		if err != nil {
			return err
		}
		if item == nil || !item.IsActive {
			return domain.ErrItemUnavailable
		}
		if !item.InStock() {
			return domain.ErrOutOfStock
		}

		acc, err := tx.LockAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if acc == nil {
			return domain.ErrAccountNotFound
		}
		if acc.Balance < item.Cost {
			return domain.ErrInsufficientFunds
		}

		now := s.now()
		if err := s.applyDelta(ctx, tx, acc, domain.EntryPurchase, -item.Cost, "item:"+strconv.FormatInt(item.ID, 10), now); err != nil {
			return err
		}
		if !item.Unlimited() {
			item.Stock--
			if err := tx.SaveItem(ctx, item); err != nil {
				return err
			}
		}
		red := &domain.Redemption{
			AccountID: acc.ID,
			ItemID:    item.ID,
			Cost:      item.Cost,
			CreatedAt: now,
		}
		if err := tx.AppendRedemption(ctx, red); err != nil {
			return err
		}

		res = domain.PurchaseResult{
			ItemName:     item.Name,
			CostPaid:     item.Cost,
			NewBalance:   acc.Balance,
			RedemptionID: red.ID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("account_id", accountID).
		Int64("item_id", itemID).
		Int64("cost", res.CostPaid).
		Int64("balance", res.NewBalance).
		Msg("item redeemed")
	return &res, nil
}

package usecase

import (
	"context"

	"github.com/poonnyworld/pbz-bots/internal/domain"
)

// ClaimDaily grants the daily reward once per rolling cooldown window. On
// cooldown it returns a *domain.CooldownError and changes nothing.
func (s *Service) ClaimDaily(ctx context.Context, accountID string) (*domain.DailyResult, error) {
	var res domain.DailyResult
	err := s.inTx(ctx, "claim_daily", func(ctx context.Context, tx domain.Tx) error {
		acc, err := tx.LockAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if acc == nil {
			return domain.ErrNotRegistered
		}

		now := s.now()
		if d := s.cooldown.CheckAndConsume(&acc.LastDailyClaim, now); !d.Allowed {
			return &domain.CooldownError{Remaining: d.Remaining}
		}
		if err := s.applyDelta(ctx, tx, acc, domain.EntryDaily, s.rules.DailyReward, "", now); err != nil {
			return err
		}
		res = domain.DailyResult{Reward: s.rules.DailyReward, NewBalance: acc.Balance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("account_id", accountID).Int64("balance", res.NewBalance).Msg("daily reward claimed")
	return &res, nil
}

package usecase

import (
	"context"
	"errors"

	"github.com/poonnyworld/pbz-bots/internal/domain"
)

// PlaceWager resolves a double-or-nothing coin flip. The outcome, the balance
// change and the quota increment commit together; the returned result is
// exactly what was persisted.
func (s *Service) PlaceWager(ctx context.Context, accountID string, bet int64, side string) (*domain.WagerResult, error) {
	if bet <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if bet > s.rules.MaxBet {
		return nil, domain.ErrBetTooLarge
	}
	chosen, err := domain.ParseSide(side)
	if err != nil {
		return nil, err
	}

	var res domain.WagerResult
	err = s.inTx(ctx, "place_wager", func(ctx context.Context, tx domain.Tx) error {
		acc, err := tx.LockAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if acc == nil || acc.Balance < bet {
			return domain.ErrInsufficientFunds
		}

		now := s.now()
		quota := s.flips.CheckAndConsume(&acc.WagerCountToday, &acc.WagerWindowStart, now)
		if !quota.Allowed {
			return domain.ErrQuotaExceeded
		}

		outcome, err := s.coin.Flip()
		if err != nil {
			return err
		}
		won := outcome == chosen
		delta, kind := -bet, domain.EntryWagerLoss
		if won {
			delta, kind = bet, domain.EntryWagerWin
		}
		if err := s.applyDelta(ctx, tx, acc, kind, delta, string(chosen), now); err != nil {
			return err
		}

		res = domain.WagerResult{
			Won:             won,
			Outcome:         outcome,
			Bet:             bet,
			FinalBalance:    acc.Balance,
			WagersUsedToday: quota.Used,
			DailyLimit:      s.rules.DailyFlipLimit,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) || errors.Is(err, domain.ErrQuotaExceeded) {
			s.log.Debug().Err(err).Str("account_id", accountID).Int64("bet", bet).Msg("wager rejected")
		}
		return nil, err
	}

	s.log.Info().
		Str("account_id", accountID).
		Int64("bet", bet).
		Bool("won", res.Won).
		Int64("balance", res.FinalBalance).
		Int("used_today", res.WagersUsedToday).
		Msg("wager resolved")
	return &res, nil
}

package usecase

import (
	"context"
	"strings"

	"github.com/poonnyworld/pbz-bots/internal/domain"
)

// Register creates the account with the starting balance. Registering an
// existing id changes nothing and reports Created=false.
func (s *Service) Register(ctx context.Context, accountID, displayName string) (*domain.RegisterResult, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, domain.ErrInvalidAccountID
	}

	var res domain.RegisterResult
	err := s.inTx(ctx, "register", func(ctx context.Context, tx domain.Tx) error {
		now := s.now()
		created, err := tx.InsertAccount(ctx, &domain.Account{
			ID:          accountID,
			DisplayName: displayName,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return err
		}
		acc, err := tx.LockAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if acc == nil {
			return domain.ErrAccountNotFound
		}
		if created {
			if err := s.applyDelta(ctx, tx, acc, domain.EntryRegister, s.rules.StartingBalance, "", now); err != nil {
				return err
			}
		}
		res = domain.RegisterResult{Created: created, Account: acc}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.Created {
		s.log.Info().Str("account_id", accountID).Str("name", displayName).Msg("account registered")
	}
	return &res, nil
}

func (s *Service) GetBalance(ctx context.Context, accountID string) (int64, error) {
	acc, err := retryRead(s, "get_balance", func() (*domain.Account, error) {
		return s.repo.GetAccount(ctx, accountID)
	})
	if err != nil {
		return 0, err
	}
	if acc == nil {
		return 0, domain.ErrAccountNotFound
	}
	return acc.Balance, nil
}

func (s *Service) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	acc, err := retryRead(s, "get_account", func() (*domain.Account, error) {
		return s.repo.GetAccount(ctx, accountID)
	})
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, domain.ErrAccountNotFound
	}
	return acc, nil
}

func (s *Service) Credit(ctx context.Context, accountID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	return s.change(ctx, "credit", accountID, amount)
}

// Debit fails with ErrInsufficientFunds instead of going negative.
func (s *Service) Debit(ctx context.Context, accountID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	return s.change(ctx, "debit", accountID, -amount)
}

func (s *Service) change(ctx context.Context, op, accountID string, delta int64) (int64, error) {
	var balance int64
	err := s.inTx(ctx, op, func(ctx context.Context, tx domain.Tx) error {
		acc, err := tx.LockAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if acc == nil {
			return domain.ErrAccountNotFound
		}
		if err := s.applyDelta(ctx, tx, acc, domain.EntryAdmin, delta, op, s.now()); err != nil {
			return err
		}
		balance = acc.Balance
		return nil
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// AdjustBalance sets an absolute balance, journaled as the difference.
func (s *Service) AdjustBalance(ctx context.Context, accountID string, target int64) (int64, error) {
	if target < 0 {
		return 0, domain.ErrInvalidAmount
	}
	err := s.inTx(ctx, "adjust_balance", func(ctx context.Context, tx domain.Tx) error {
		acc, err := tx.LockAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if acc == nil {
			return domain.ErrAccountNotFound
		}
		return s.applyDelta(ctx, tx, acc, domain.EntryAdmin, target-acc.Balance, "adjust", s.now())
	})
	if err != nil {
		return 0, err
	}
	s.log.Info().Str("account_id", accountID).Int64("balance", target).Msg("balance adjusted")
	return target, nil
}

// AwardActivity credits the activity reward for a chat message, creating the
// account on first sight and refreshing its display name.
func (s *Service) AwardActivity(ctx context.Context, accountID, displayName string) (int64, error) {
	if strings.TrimSpace(accountID) == "" {
		return 0, domain.ErrInvalidAccountID
	}
	var balance int64
	err := s.inTx(ctx, "award_activity", func(ctx context.Context, tx domain.Tx) error {
		now := s.now()
		if _, err := tx.InsertAccount(ctx, &domain.Account{
			ID:          accountID,
			DisplayName: displayName,
			CreatedAt:   now,
			UpdatedAt:   now,
		}); err != nil {
			return err
		}
		acc, err := tx.LockAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if acc == nil {
			return domain.ErrAccountNotFound
		}
		if displayName != "" {
			acc.DisplayName = displayName
		}
		if err := s.applyDelta(ctx, tx, acc, domain.EntryActivity, s.rules.ActivityReward, "", now); err != nil {
			return err
		}
		balance = acc.Balance
		return nil
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

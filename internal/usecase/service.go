package usecase

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/poonnyworld/pbz-bots/internal/domain"
	"github.com/poonnyworld/pbz-bots/internal/ratelimit"
)

// Rules are the economy tunables.
type Rules struct {
	MaxBet          int64
	DailyFlipLimit  int
	DailyReward     int64
	DailyCooldown   time.Duration
	StartingBalance int64
	ActivityReward  int64
	// Location sets the calendar-day boundary of the wager quota.
	Location *time.Location
}

func DefaultRules() Rules {
	return Rules{
		MaxBet:          500,
		DailyFlipLimit:  5,
		DailyReward:     50,
		DailyCooldown:   24 * time.Hour,
		StartingBalance: 10,
		ActivityReward:  1,
		Location:        time.UTC,
	}
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithCoin(c Coin) Option {
	return func(s *Service) { s.coin = c }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// Service is the economy engine. All state changes run inside a single
// Ledger Store transaction scoped to the rows they touch.
type Service struct {
	repo  domain.Repository
	rules Rules
	now   func() time.Time
	coin  Coin
	log   zerolog.Logger

	cooldown ratelimit.Cooldown
	flips    ratelimit.DailyCounter
}

func NewService(r domain.Repository, rules Rules, opts ...Option) *Service {
	s := &Service{
		repo:  r,
		rules: rules,
		now:   time.Now,
		coin:  CryptoCoin{},
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cooldown = ratelimit.Cooldown{Window: rules.DailyCooldown}
	s.flips = ratelimit.DailyCounter{Limit: rules.DailyFlipLimit, Location: rules.Location}
	return s
}

func (s *Service) Rules() Rules {
	return s.rules
}

// inTx retries fn once when the store reports a transient failure. A
// rolled-back attempt leaves no state behind, so the retry starts clean.
func (s *Service) inTx(ctx context.Context, op string, fn func(ctx context.Context, tx domain.Tx) error) error {
	err := s.repo.RunInTx(ctx, fn)
	if errors.Is(err, domain.ErrStorageUnavailable) {
		s.log.Warn().Err(err).Str("op", op).Msg("storage unavailable, retrying")
		err = s.repo.RunInTx(ctx, fn)
	}
	return err
}

func retryRead[T any](s *Service, op string, fn func() (T, error)) (T, error) {
	v, err := fn()
	if errors.Is(err, domain.ErrStorageUnavailable) {
		s.log.Warn().Err(err).Str("op", op).Msg("storage unavailable, retrying")
		v, err = fn()
	}
	return v, err
}

// applyDelta changes the balance of a locked account and journals the change.
// It is the only place a balance is written.
func (s *Service) applyDelta(ctx context.Context, tx domain.Tx, acc *domain.Account, kind domain.EntryKind, delta int64, ref string, now time.Time) error {
	if delta < 0 && acc.Balance < -delta {
		return domain.ErrInsufficientFunds
	}
	if delta > 0 && acc.Balance > math.MaxInt64-delta {
		return domain.ErrInvalidAmount
	}
	acc.Balance += delta
	acc.UpdatedAt = now
	if err := tx.SaveAccount(ctx, acc); err != nil {
		return err
	}
	if delta == 0 {
		return nil
	}
	return tx.AppendEntry(ctx, domain.NewLedgerEntry(acc, kind, delta, ref, now))
}

package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/poonnyworld/pbz-bots/internal/domain"
	"github.com/poonnyworld/pbz-bots/internal/repository"
	"github.com/poonnyworld/pbz-bots/internal/usecase"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixedCoin struct {
	side domain.Side
}

func (c fixedCoin) Flip() (domain.Side, error) { return c.side, nil }

type fixture struct {
	ctx   context.Context
	repo  *repository.MemoryRepo
	clock *fakeClock
	svc   *usecase.Service
}

func newFixture(t *testing.T, opts ...usecase.Option) *fixture {
	t.Helper()
	f := &fixture{
		ctx:   context.Background(),
		repo:  repository.NewMemoryRepo(),
		clock: newFakeClock(),
	}
	opts = append([]usecase.Option{usecase.WithClock(f.clock.Now)}, opts...)
	f.svc = usecase.NewService(f.repo, usecase.DefaultRules(), opts...)
	return f
}

// account registers id and sets its balance.
func (f *fixture) account(t *testing.T, id string, balance int64) {
	t.Helper()
	_, err := f.svc.Register(f.ctx, id, id)
	require.NoError(t, err)
	_, err = f.svc.AdjustBalance(f.ctx, id, balance)
	require.NoError(t, err)
}

func (f *fixture) item(t *testing.T, name string, cost int64, stock int) int64 {
	t.Helper()
	it := &domain.Item{Name: name, Cost: cost, Stock: stock, IsActive: true}
	require.NoError(t, f.svc.CreateItem(f.ctx, it))
	return it.ID
}

func (f *fixture) balance(t *testing.T, id string) int64 {
	t.Helper()
	b, err := f.svc.GetBalance(f.ctx, id)
	require.NoError(t, err)
	return b
}

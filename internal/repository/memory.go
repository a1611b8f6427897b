package repository

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/poonnyworld/pbz-bots/internal/domain"
)

// MemoryRepo is an in-process Ledger Store. Each transaction locks the rows
// it touches; rows belonging to other accounts or items stay available.
type MemoryRepo struct {
	mu          sync.RWMutex // guards the maps below, never held across a transaction
	accounts    map[string]domain.Account
	items       map[int64]domain.Item
	redemptions []domain.Redemption
	entries     []domain.LedgerEntry

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	nextItemID       atomic.Int64
	nextRedemptionID atomic.Int64

	faultMu sync.Mutex
	fault   func(op string) error
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		accounts: make(map[string]domain.Account),
		items:    make(map[int64]domain.Item),
		locks:    make(map[string]*sync.Mutex),
	}
}

// SetFault installs a hook consulted before every transactional operation.
// A non-nil return aborts the operation with that error.
func (m *MemoryRepo) SetFault(fn func(op string) error) {
	m.faultMu.Lock()
	defer m.faultMu.Unlock()
	m.fault = fn
}

func (m *MemoryRepo) checkFault(op string) error {
	m.faultMu.Lock()
	fn := m.fault
	m.faultMu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(op)
}

func (m *MemoryRepo) rowLock(key string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	return l
}

func (m *MemoryRepo) GetAccount(_ context.Context, id string) (*domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acc, ok := m.accounts[id]
	if !ok {
		return nil, nil
	}
	return &acc, nil
}

func (m *MemoryRepo) ListAccounts(_ context.Context) ([]domain.Account, error) {
	m.mu.RLock()
	res := make([]domain.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		res = append(res, a)
	}
	m.mu.RUnlock()

	sort.Slice(res, func(i, j int) bool {
		if res[i].Balance != res[j].Balance {
			return res[i].Balance > res[j].Balance
		}
		return res[i].ID < res[j].ID
	})
	return res, nil
}

func (m *MemoryRepo) GetItem(_ context.Context, id int64) (*domain.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	return &it, nil
}

func (m *MemoryRepo) ListActiveItems(ctx context.Context) ([]domain.Item, error) {
	all, err := m.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	res := all[:0]
	for _, it := range all {
		if it.IsActive {
			res = append(res, it)
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].Cost < res[j].Cost
	})
	return res, nil
}

// ListItems returns every item ordered by id.
func (m *MemoryRepo) ListItems(_ context.Context) ([]domain.Item, error) {
	m.mu.RLock()
	res := make([]domain.Item, 0, len(m.items))
	for _, it := range m.items {
		res = append(res, it)
	}
	m.mu.RUnlock()

	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (m *MemoryRepo) CreateItem(_ context.Context, item *domain.Item) error {
	item.ID = m.nextItemID.Add(1)
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	m.mu.Lock()
	m.items[item.ID] = *item
	m.mu.Unlock()
	return nil
}

func (m *MemoryRepo) ListRedemptions(_ context.Context, limit int) ([]domain.Redemption, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := len(m.redemptions)
	if limit <= 0 || limit > n {
		limit = n
	}
	res := make([]domain.Redemption, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		res = append(res, m.redemptions[i])
	}
	return res, nil
}

// Entries returns the ledger journal of one account in append order.
func (m *MemoryRepo) Entries(accountID string) []domain.LedgerEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []domain.LedgerEntry
	for _, e := range m.entries {
		if e.AccountID == accountID {
			res = append(res, e)
		}
	}
	return res
}

func (m *MemoryRepo) RunInTx(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	if err := m.checkFault("begin"); err != nil {
		return err
	}
	tx := &memTx{
		repo:     m,
		held:     make(map[string]*sync.Mutex),
		accounts: make(map[string]domain.Account),
		items:    make(map[int64]domain.Item),
	}
	defer tx.release()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	// a failed commit never reads as retryable
	if err := m.checkFault("commit"); err != nil {
		return errors.Errorf("repo: commit: %v", err)
	}
	tx.commit()
	return nil
}

type memTx struct {
	repo *MemoryRepo
	held map[string]*sync.Mutex

	accounts    map[string]domain.Account
	items       map[int64]domain.Item
	redemptions []domain.Redemption
	entries     []domain.LedgerEntry
}

func (t *memTx) lock(key string) {
	if _, ok := t.held[key]; ok {
		return
	}
	l := t.repo.rowLock(key)
	l.Lock()
	t.held[key] = l
}

func (t *memTx) release() {
	for k, l := range t.held {
		l.Unlock()
		delete(t.held, k)
	}
}

func (t *memTx) commit() {
	m := t.repo
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, acc := range t.accounts {
		m.accounts[id] = acc
	}
	for id, it := range t.items {
		m.items[id] = it
	}
	m.redemptions = append(m.redemptions, t.redemptions...)
	m.entries = append(m.entries, t.entries...)
}

func accountKey(id string) string { return "account:" + id }
func itemKey(id int64) string     { return "item:" + strconv.FormatInt(id, 10) }

func (t *memTx) current(id string) (domain.Account, bool) {
	if acc, ok := t.accounts[id]; ok {
		return acc, true
	}
	t.repo.mu.RLock()
	defer t.repo.mu.RUnlock()
	acc, ok := t.repo.accounts[id]
	return acc, ok
}

func (t *memTx) InsertAccount(_ context.Context, acc *domain.Account) (bool, error) {
	if err := t.repo.checkFault("insert_account"); err != nil {
		return false, err
	}
	t.lock(accountKey(acc.ID))
	if _, ok := t.current(acc.ID); ok {
		return false, nil
	}
	t.accounts[acc.ID] = *acc
	return true, nil
}

func (t *memTx) LockAccount(_ context.Context, id string) (*domain.Account, error) {
	if err := t.repo.checkFault("lock_account"); err != nil {
		return nil, err
	}
	t.lock(accountKey(id))
	acc, ok := t.current(id)
	if !ok {
		return nil, nil
	}
	return &acc, nil
}

func (t *memTx) SaveAccount(_ context.Context, acc *domain.Account) error {
	if err := t.repo.checkFault("save_account"); err != nil {
		return err
	}
	if _, ok := t.held[accountKey(acc.ID)]; !ok {
		return errors.Errorf("repo: SaveAccount: account %s not locked", acc.ID)
	}
	if _, ok := t.current(acc.ID); !ok {
		return errors.Errorf("repo: SaveAccount: account %s not found", acc.ID)
	}
	t.accounts[acc.ID] = *acc
	return nil
}

func (t *memTx) LockItem(_ context.Context, id int64) (*domain.Item, error) {
	if err := t.repo.checkFault("lock_item"); err != nil {
		return nil, err
	}
	t.lock(itemKey(id))
	if it, ok := t.items[id]; ok {
		return &it, nil
	}
	t.repo.mu.RLock()
	it, ok := t.repo.items[id]
	t.repo.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return &it, nil
}

func (t *memTx) SaveItem(_ context.Context, item *domain.Item) error {
	if err := t.repo.checkFault("save_item"); err != nil {
		return err
	}
	if _, ok := t.held[itemKey(item.ID)]; !ok {
		return errors.Errorf("repo: SaveItem: item %d not locked", item.ID)
	}
	t.items[item.ID] = *item
	return nil
}

func (t *memTx) AppendRedemption(_ context.Context, r *domain.Redemption) error {
	if err := t.repo.checkFault("append_redemption"); err != nil {
		return err
	}
	r.ID = t.repo.nextRedemptionID.Add(1)
	t.redemptions = append(t.redemptions, *r)
	return nil
}

func (t *memTx) AppendEntry(_ context.Context, e *domain.LedgerEntry) error {
	if err := t.repo.checkFault("append_entry"); err != nil {
		return err
	}
	t.entries = append(t.entries, *e)
	return nil
}

package domain

import "context"

// Repository is the Ledger Store the engine depends on.
type Repository interface {
	GetAccount(ctx context.Context, id string) (*Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)

	GetItem(ctx context.Context, id int64) (*Item, error)
	ListActiveItems(ctx context.Context) ([]Item, error)
	ListItems(ctx context.Context) ([]Item, error)
	CreateItem(ctx context.Context, item *Item) error

	ListRedemptions(ctx context.Context, limit int) ([]Redemption, error)

	// RunInTx commits when fn returns nil and rolls back otherwise.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is one atomic unit of work. Lock* methods return nil, nil for absent
// rows and hold the row until the transaction ends. Callers lock items
// before accounts.
type Tx interface {
	InsertAccount(ctx context.Context, acc *Account) (bool, error)
	LockAccount(ctx context.Context, id string) (*Account, error)
	SaveAccount(ctx context.Context, acc *Account) error

	LockItem(ctx context.Context, id int64) (*Item, error)
	SaveItem(ctx context.Context, item *Item) error

	AppendRedemption(ctx context.Context, r *Redemption) error
	AppendEntry(ctx context.Context, e *LedgerEntry) error
}

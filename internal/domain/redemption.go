package domain

import (
	"time"

	"github.com/google/uuid"
)

// Redemption is the append-only record of a completed purchase. Cost is the
// price paid at transaction time.
type Redemption struct {
	ID        int64
	AccountID string
	ItemID    int64
	Cost      int64
	CreatedAt time.Time
}

type EntryKind string

const (
	EntryRegister  EntryKind = "register"
	EntryActivity  EntryKind = "activity"
	EntryDaily     EntryKind = "daily"
	EntryWagerWin  EntryKind = "wager_win"
	EntryWagerLoss EntryKind = "wager_loss"
	EntryPurchase  EntryKind = "purchase"
	EntryAdmin     EntryKind = "admin"
)

// LedgerEntry journals a single balance change.
type LedgerEntry struct {
	ID           uuid.UUID
	AccountID    string
	Kind         EntryKind
	Delta        int64
	BalanceAfter int64
	Reference    string
	CreatedAt    time.Time
}

func NewLedgerEntry(acc *Account, kind EntryKind, delta int64, reference string, at time.Time) *LedgerEntry {
	return &LedgerEntry{
		ID:           uuid.New(),
		AccountID:    acc.ID,
		Kind:         kind,
		Delta:        delta,
		BalanceAfter: acc.Balance,
		Reference:    reference,
		CreatedAt:    at,
	}
}

package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidInput
	KindPolicyViolation
	KindCooldown
	KindStorageUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidInput:
		return "invalid_input"
	case KindPolicyViolation:
		return "policy_violation"
	case KindCooldown:
		return "cooldown"
	case KindStorageUnavailable:
		return "storage_unavailable"
	default:
		return "internal"
	}
}

// Error is an expected, user-facing outcome of an engine operation.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func NewError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches by code so that copies with a different message still compare
// equal to the sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

var (
	ErrAccountNotFound    = NewError(KindNotFound, "account_not_found", "account not found")
	ErrNotRegistered      = NewError(KindNotFound, "not_registered", "account is not registered")
	ErrItemNotFound       = NewError(KindNotFound, "item_not_found", "item not found")
	ErrItemUnavailable    = NewError(KindPolicyViolation, "item_unavailable", "item not found or unavailable")
	ErrOutOfStock         = NewError(KindPolicyViolation, "out_of_stock", "item is out of stock")
	ErrInsufficientFunds  = NewError(KindPolicyViolation, "insufficient_funds", "not enough souls")
	ErrInvalidAccountID   = NewError(KindInvalidInput, "invalid_account_id", "account id is required")
	ErrInvalidAmount      = NewError(KindInvalidInput, "invalid_amount", "amount must be a positive integer")
	ErrBetTooLarge        = NewError(KindPolicyViolation, "bet_too_large", "bet exceeds the maximum")
	ErrInvalidSide        = NewError(KindInvalidInput, "invalid_side", "side must be heads or tails")
	ErrQuotaExceeded      = NewError(KindPolicyViolation, "quota_exceeded", "daily wager limit reached")
	ErrCooldownActive     = NewError(KindCooldown, "cooldown_active", "daily reward already claimed")
	ErrStorageUnavailable = NewError(KindStorageUnavailable, "storage_unavailable", "storage unavailable")
)

// CooldownError reports how long until the next claim is allowed.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("daily reward on cooldown, %d hours remaining", e.HoursRemaining())
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrCooldownActive
}

// HoursRemaining rounds up, so a user is never told to wait 0 hours while
// still on cooldown.
func (e *CooldownError) HoursRemaining() int {
	return int(math.Ceil(e.Remaining.Hours()))
}

// StorageError marks a transient infrastructure failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool {
	return target == ErrStorageUnavailable
}

// KindOf returns the taxonomy kind of err, KindInternal for unknown errors.
func KindOf(err error) Kind {
	var de *Error
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrCooldownActive):
		return KindCooldown
	case errors.Is(err, ErrStorageUnavailable):
		return KindStorageUnavailable
	case errors.As(err, &de):
		return de.Kind
	default:
		return KindInternal
	}
}

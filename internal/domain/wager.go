package domain

import "strings"

type Side string

const (
	Heads Side = "heads"
	Tails Side = "tails"
)

// ParseSide normalizes the accepted aliases, case-insensitively.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "h", "head", "heads":
		return Heads, nil
	case "t", "tail", "tails":
		return Tails, nil
	default:
		return "", ErrInvalidSide
	}
}

type WagerResult struct {
	Won             bool
	Outcome         Side
	Bet             int64
	FinalBalance    int64
	WagersUsedToday int
	DailyLimit      int
}

type PurchaseResult struct {
	ItemName     string
	CostPaid     int64
	NewBalance   int64
	RedemptionID int64
}

type DailyResult struct {
	Reward     int64
	NewBalance int64
}

type RegisterResult struct {
	Created bool
	Account *Account
}

package domain

import "time"

type Account struct {
	ID          string
	DisplayName string
	Balance     int64

	// LastDailyClaim is the zero time until the first successful claim.
	LastDailyClaim time.Time

	WagerCountToday  int
	WagerWindowStart time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a *Account) HasClaimedDaily() bool {
	return !a.LastDailyClaim.IsZero() && a.LastDailyClaim.Unix() != 0
}

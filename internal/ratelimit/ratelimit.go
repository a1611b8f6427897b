// Package ratelimit holds the two quota shapes used by the economy: a rolling
// cooldown and a calendar-day counter.
//
// Both operate on state owned by the caller. They are atomic only when the
// caller holds that state exclusively, e.g. inside a row-locked transaction.
package ratelimit

import "time"

type Decision struct {
	Allowed bool
	// Remaining is the wait until the next attempt can succeed. Zero when allowed.
	Remaining time.Duration
	// Used is the counter value after the decision (DailyCounter only).
	Used int
}

// Cooldown allows one grant per rolling Window measured from the last grant.
type Cooldown struct {
	Window time.Duration
}

// CheckAndConsume stamps now into last when allowed and leaves it untouched
// otherwise. A zero or epoch last means never granted.
func (c Cooldown) CheckAndConsume(last *time.Time, now time.Time) Decision {
	if !neverSet(*last) {
		next := last.Add(c.Window)
		if now.Before(next) {
			return Decision{Remaining: next.Sub(now)}
		}
	}
	*last = now
	return Decision{Allowed: true}
}

// DailyCounter allows Limit actions per calendar day in Location.
type DailyCounter struct {
	Limit    int
	Location *time.Location
}

// CheckAndConsume resets the window when its start is on an earlier day,
// then rejects without incrementing when the limit is reached.
func (d DailyCounter) CheckAndConsume(count *int, windowStart *time.Time, now time.Time) Decision {
	if !d.SameDay(*windowStart, now) {
		*count = 0
		*windowStart = now
	}
	if *count >= d.Limit {
		return Decision{Remaining: d.nextDay(now).Sub(now), Used: *count}
	}
	*count++
	return Decision{Allowed: true, Used: *count}
}

// UsedToday reports the counter as it would be seen now, without mutating it.
func (d DailyCounter) UsedToday(count int, windowStart, now time.Time) int {
	if !d.SameDay(windowStart, now) {
		return 0
	}
	return count
}

func (d DailyCounter) SameDay(a, b time.Time) bool {
	if neverSet(a) {
		return false
	}
	loc := d.loc()
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

func (d DailyCounter) nextDay(now time.Time) time.Time {
	local := now.In(d.loc())
	y, m, day := local.Date()
	return time.Date(y, m, day+1, 0, 0, 0, 0, d.loc())
}

func (d DailyCounter) loc() *time.Location {
	if d.Location == nil {
		return time.UTC
	}
	return d.Location
}

func neverSet(t time.Time) bool {
	return t.IsZero() || t.Unix() == 0
}

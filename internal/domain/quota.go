// Package domain contains core business types and interfaces.
//
// This file defines the daily message quota policy. The policy itself is a
// pure function over a snapshot of the quota record; enforcement on the
// request path happens through an atomic conditional increment in the
// repository, so the policy here is used for display and pre-flight checks.
package domain

import "time"

// QuotaLimits holds the externally configured daily message limits.
type QuotaLimits struct {
	FreeDaily int // Messages per day for non-subscribers
	PaidDaily int // Messages per day for subscribers
}

// QuotaDecision is the result of evaluating the quota policy.
type QuotaDecision struct {
	CanSend   bool
	Remaining int
	Limit     int
	Used      int
}

// DailyLimitFor returns the applicable daily limit for a user.
func (l QuotaLimits) DailyLimitFor(subscriber bool) int {
	if subscriber {
		return l.PaidDaily
	}
	return l.FreeDaily
}

// EvaluateQuota applies the quota policy to a record snapshot.
// No side effects; safe to call with any count, including counts above the
// limit (the limit may have been lowered since the messages were sent).
func EvaluateQuota(subscriber bool, dailyCount int, limits QuotaLimits) QuotaDecision {
	limit := limits.DailyLimitFor(subscriber)
	remaining := limit - dailyCount
	if remaining < 0 {
		remaining = 0
	}
	return QuotaDecision{
		CanSend:   dailyCount < limit,
		Remaining: remaining,
		Limit:     limit,
		Used:      dailyCount,
	}
}

// CrossedDayBoundary reports whether the calendar date of lastReset differs
// from now's calendar date, both interpreted in now's location. Any date
// change triggers a reset, so a session dormant across several days is
// treated the same as one that crossed a single boundary.
func CrossedDayBoundary(lastReset, now time.Time) bool {
	ly, lm, ld := lastReset.In(now.Location()).Date()
	ny, nm, nd := now.Date()
	return ly != ny || lm != nm || ld != nd
}

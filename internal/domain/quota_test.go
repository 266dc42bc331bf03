package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateQuota(t *testing.T) {
	limits := QuotaLimits{FreeDaily: 10, PaidDaily: 100}

	tests := []struct {
		name       string
		subscriber bool
		count      int
		want       QuotaDecision
	}{
		{
			name:       "free user under limit",
			subscriber: false,
			count:      0,
			want:       QuotaDecision{CanSend: true, Remaining: 10, Limit: 10, Used: 0},
		},
		{
			name:       "free user one below limit",
			subscriber: false,
			count:      9,
			want:       QuotaDecision{CanSend: true, Remaining: 1, Limit: 10, Used: 9},
		},
		{
			name:       "free user at limit",
			subscriber: false,
			count:      10,
			want:       QuotaDecision{CanSend: false, Remaining: 0, Limit: 10, Used: 10},
		},
		{
			name:       "free user over limit clamps remaining",
			subscriber: false,
			count:      15,
			want:       QuotaDecision{CanSend: false, Remaining: 0, Limit: 10, Used: 15},
		},
		{
			name:       "subscriber uses paid limit",
			subscriber: true,
			count:      10,
			want:       QuotaDecision{CanSend: true, Remaining: 90, Limit: 100, Used: 10},
		},
		{
			name:       "subscriber at paid limit",
			subscriber: true,
			count:      100,
			want:       QuotaDecision{CanSend: false, Remaining: 0, Limit: 100, Used: 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateQuota(tt.subscriber, tt.count, limits)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateQuotaUpgradeScenario(t *testing.T) {
	// A free user who exhausted the free limit can send again once a
	// subscription webhook flips them to subscriber.
	limits := QuotaLimits{FreeDaily: 10, PaidDaily: 100}

	free := EvaluateQuota(false, 10, limits)
	assert.False(t, free.CanSend)

	paid := EvaluateQuota(true, 10, limits)
	assert.True(t, paid.CanSend)
	assert.Equal(t, 90, paid.Remaining)
}

func TestCrossedDayBoundary(t *testing.T) {
	loc := time.FixedZone("test", -7*60*60)

	tests := []struct {
		name      string
		lastReset time.Time
		now       time.Time
		want      bool
	}{
		{
			name:      "same day",
			lastReset: time.Date(2025, 3, 10, 8, 0, 0, 0, loc),
			now:       time.Date(2025, 3, 10, 23, 59, 0, 0, loc),
			want:      false,
		},
		{
			name:      "same instant",
			lastReset: time.Date(2025, 3, 10, 8, 0, 0, 0, loc),
			now:       time.Date(2025, 3, 10, 8, 0, 0, 0, loc),
			want:      false,
		},
		{
			name:      "next day just after midnight",
			lastReset: time.Date(2025, 3, 10, 23, 59, 0, 0, loc),
			now:       time.Date(2025, 3, 11, 0, 1, 0, 0, loc),
			want:      true,
		},
		{
			name:      "multiple days dormant",
			lastReset: time.Date(2025, 3, 1, 12, 0, 0, 0, loc),
			now:       time.Date(2025, 3, 10, 12, 0, 0, 0, loc),
			want:      true,
		},
		{
			name:      "month boundary",
			lastReset: time.Date(2025, 2, 28, 23, 0, 0, 0, loc),
			now:       time.Date(2025, 3, 1, 1, 0, 0, 0, loc),
			want:      true,
		},
		{
			// Less than 24 elapsed hours still counts once the calendar
			// date changes.
			name:      "calendar date not elapsed duration",
			lastReset: time.Date(2025, 3, 10, 23, 0, 0, 0, loc),
			now:       time.Date(2025, 3, 11, 1, 0, 0, 0, loc),
			want:      true,
		},
		{
			// lastReset stored in UTC, compared in server-local time.
			name:      "differing zones compared in now's location",
			lastReset: time.Date(2025, 3, 11, 3, 0, 0, 0, time.UTC), // 2025-03-10 20:00 in loc
			now:       time.Date(2025, 3, 10, 22, 0, 0, 0, loc),
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CrossedDayBoundary(tt.lastReset, tt.now))
		})
	}
}

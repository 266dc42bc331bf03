package service

import (
	"testing"
	"time"
)

func TestNextQuotaReset(t *testing.T) {
	loc := time.FixedZone("TST", -5*3600)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "midday rolls to next midnight",
			now:  time.Date(2025, 6, 15, 14, 30, 0, 0, loc),
			want: time.Date(2025, 6, 16, 0, 0, 0, 0, loc),
		},
		{
			name: "just before midnight",
			now:  time.Date(2025, 6, 15, 23, 59, 59, 0, loc),
			want: time.Date(2025, 6, 16, 0, 0, 0, 0, loc),
		},
		{
			name: "exactly midnight rolls a full day",
			now:  time.Date(2025, 6, 15, 0, 0, 0, 0, loc),
			want: time.Date(2025, 6, 16, 0, 0, 0, 0, loc),
		},
		{
			name: "month boundary",
			now:  time.Date(2025, 6, 30, 18, 0, 0, 0, loc),
			want: time.Date(2025, 7, 1, 0, 0, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextQuotaReset(tt.now)
			if !got.Equal(tt.want) {
				t.Errorf("NextQuotaReset(%v) = %v, want %v", tt.now, got, tt.want)
			}
			if got.Location() != tt.now.Location() {
				t.Errorf("expected reset in the caller's location, got %v", got.Location())
			}
		})
	}
}

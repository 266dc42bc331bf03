package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInvite() *Invite {
	return &Invite{
		ID:         uuid.New(),
		Code:       "abc123",
		Email:      "invited@example.com",
		InvitedBy:  uuid.New(),
		MaxUses:    1,
		UsageCount: 0,
		ExpiresAt:  time.Now().Add(24 * time.Hour),
	}
}

func TestInviteValidate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		mutate   func(*Invite)
		email    string
		wantCode string // empty means valid
	}{
		{
			name:   "valid with matching email",
			mutate: func(i *Invite) {},
			email:  "invited@example.com",
		},
		{
			name:   "valid with no email supplied",
			mutate: func(i *Invite) {},
			email:  "",
		},
		{
			name:   "email comparison is case-insensitive",
			mutate: func(i *Invite) {},
			email:  "Invited@Example.COM",
		},
		{
			name:     "email mismatch",
			mutate:   func(i *Invite) {},
			email:    "other@example.com",
			wantCode: EINVALID,
		},
		{
			name: "unbound invite matches any email",
			mutate: func(i *Invite) {
				i.Email = ""
			},
			email: "anyone@example.com",
		},
		{
			name: "expired",
			mutate: func(i *Invite) {
				i.ExpiresAt = now.Add(-time.Hour)
			},
			email:    "invited@example.com",
			wantCode: EGONE,
		},
		{
			// Expiry wins regardless of usage count.
			name: "expired and unused",
			mutate: func(i *Invite) {
				i.ExpiresAt = now.Add(-time.Minute)
				i.UsageCount = 0
			},
			email:    "",
			wantCode: EGONE,
		},
		{
			name: "exhausted single-use",
			mutate: func(i *Invite) {
				i.UsageCount = 1
				i.Used = true
			},
			email:    "invited@example.com",
			wantCode: EEXHAUSTED,
		},
		{
			name: "multi-use with redemptions left",
			mutate: func(i *Invite) {
				i.MaxUses = 5
				i.UsageCount = 3
			},
			email: "invited@example.com",
		},
		{
			name: "multi-use exhausted",
			mutate: func(i *Invite) {
				i.MaxUses = 5
				i.UsageCount = 5
				i.Used = true
			},
			email:    "invited@example.com",
			wantCode: EEXHAUSTED,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := validInvite()
			tt.mutate(inv)

			err := inv.Validate(tt.email, now)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			var de *Error
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.wantCode, de.Code)
		})
	}
}

func TestCreateInviteParamsNormalize(t *testing.T) {
	p := CreateInviteParams{Email: "  Someone@Example.com "}
	p.Normalize()

	assert.Equal(t, "someone@example.com", p.Email)
	assert.Equal(t, DefaultInviteMaxUses, p.MaxUses)
	assert.Equal(t, DefaultInviteExpiryDays, p.ExpiresInDays)

	p = CreateInviteParams{MaxUses: 3, ExpiresInDays: 30}
	p.Normalize()
	assert.Equal(t, 3, p.MaxUses)
	assert.Equal(t, 30, p.ExpiresInDays)
}

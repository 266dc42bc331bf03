// Package domain contains core business types and interfaces.
//
// This file defines the invite ledger types. Invites gate self-registration:
// each code carries a usage cap and an expiry, and redemption is an atomic
// conditional increment performed by the database.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Invite represents a registration invite code.
type Invite struct {
	ID         uuid.UUID
	Code       string
	Email      string // Intended recipient; enforced case-insensitively at validation
	InvitedBy  uuid.UUID
	MaxUses    int
	UsageCount int
	Used       bool // Set once UsageCount reaches MaxUses
	UsedAt     *time.Time
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// IsExpired returns true if the invite has passed its expiry at the given time.
func (i *Invite) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// IsExhausted returns true if the invite has no redemptions left.
func (i *Invite) IsExhausted() bool {
	return i.Used && i.UsageCount >= i.MaxUses
}

// MatchesEmail reports whether the supplied email matches the invite's bound
// email, comparing case-insensitively. An invite with no bound email matches
// any address.
func (i *Invite) MatchesEmail(email string) bool {
	if i.Email == "" {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(i.Email), strings.TrimSpace(email))
}

// Validate checks whether the invite can currently be redeemed for the given
// email. It returns nil when redeemable, or a typed domain error otherwise.
// The email check only applies when an email is supplied.
func (i *Invite) Validate(email string, now time.Time) error {
	const op = "invite.validate"

	if i.IsExpired(now) {
		return InviteExpired(op)
	}
	if i.IsExhausted() {
		return InviteExhausted(op)
	}
	if email != "" && !i.MatchesEmail(email) {
		return Invalid(op, "This invite code was issued for a different email address.")
	}
	return nil
}

// CreateInviteParams contains parameters for creating an invite.
type CreateInviteParams struct {
	Email         string
	InvitedBy     uuid.UUID
	MaxUses       int // Defaults to 1 when zero
	ExpiresInDays int // Defaults to 7 when zero
}

// Invite creation defaults.
const (
	DefaultInviteMaxUses    = 1
	DefaultInviteExpiryDays = 7
)

// Normalize applies creation defaults and trims the recipient email.
func (p *CreateInviteParams) Normalize() {
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	if p.MaxUses <= 0 {
		p.MaxUses = DefaultInviteMaxUses
	}
	if p.ExpiresInDays <= 0 {
		p.ExpiresInDays = DefaultInviteExpiryDays
	}
}

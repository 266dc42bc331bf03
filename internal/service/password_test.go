package service

import (
	"strings"
	"testing"
)

// =============================================================================
// Password Validation Tests
// =============================================================================

func TestValidatePassword_MinimumLength(t *testing.T) {
	testCases := []struct {
		name     string
		password string
		valid    bool
	}{
		{"too short - 7 chars", "Abcdef1", false},
		{"minimum - 8 chars", "Abcdef12", true},
		{"longer - 12 chars", "Abcdefgh1234", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validatePassword(tc.password)
			if tc.valid && err != nil {
				t.Errorf("expected valid, got error: %v", err)
			}
			if !tc.valid && err == nil {
				t.Error("expected error for short password")
			}
		})
	}
}

func TestValidatePassword_MaximumLength(t *testing.T) {
	// 72 is the bcrypt limit
	longPassword := strings.Repeat("Aa1", 24) // 72 chars
	tooLong := strings.Repeat("Aa1", 25)      // 75 chars

	if err := validatePassword(longPassword); err != nil {
		t.Errorf("72 char password should be valid: %v", err)
	}

	if err := validatePassword(tooLong); err == nil {
		t.Error("73+ char password should be invalid")
	}
}

// =============================================================================
// Email Validation Tests
// =============================================================================

func TestValidateEmail(t *testing.T) {
	testCases := []struct {
		name  string
		email string
		valid bool
	}{
		{"simple", "user@example.com", true},
		{"subdomain", "user@mail.example.com", true},
		{"plus addressing", "user+tag@example.com", true},
		{"empty", "", false},
		{"no at", "userexample.com", false},
		{"two ats", "user@@example.com", false},
		{"starts with at", "@example.com", false},
		{"ends with at", "user@", false},
		{"no dot in domain", "user@localhost", false},
		{"consecutive dots", "user..name@example.com", false},
		{"too long", strings.Repeat("a", 250) + "@x.io", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateEmail(tc.email)
			if tc.valid && err != nil {
				t.Errorf("expected %q valid, got error: %v", tc.email, err)
			}
			if !tc.valid && err == nil {
				t.Errorf("expected error for %q", tc.email)
			}
		})
	}
}

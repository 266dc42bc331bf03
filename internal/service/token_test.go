package service

import (
	"testing"
)

// =============================================================================
// Session Token Tests
// =============================================================================

func TestGenerateSessionToken_Length(t *testing.T) {
	token, err := generateSessionToken()
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	// 32 random bytes hex-encode to 64 characters
	if len(token) != 64 {
		t.Errorf("expected 64 character token, got %d", len(token))
	}
}

func TestGenerateSessionToken_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := generateSessionToken()
		if err != nil {
			t.Fatalf("failed to generate token: %v", err)
		}
		if seen[token] {
			t.Fatal("generated duplicate session token")
		}
		seen[token] = true
	}
}

func TestHashSessionToken_Deterministic(t *testing.T) {
	token := "abc123"

	hash1 := hashSessionToken(token)
	hash2 := hashSessionToken(token)

	if hash1 != hash2 {
		t.Error("hashing the same token should produce the same hash")
	}

	// SHA-256 hex-encodes to 64 characters
	if len(hash1) != 64 {
		t.Errorf("expected 64 character hash, got %d", len(hash1))
	}
}

func TestHashSessionToken_DiffersFromToken(t *testing.T) {
	token, err := generateSessionToken()
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	if hashSessionToken(token) == token {
		t.Error("hash must not equal the raw token")
	}
}

// =============================================================================
// Invite Code Tests
// =============================================================================

func TestGenerateInviteCode_Length(t *testing.T) {
	code, err := generateInviteCode()
	if err != nil {
		t.Fatalf("failed to generate invite code: %v", err)
	}

	// 32 random bytes (256 bits) hex-encode to 64 characters
	if len(code) != 64 {
		t.Errorf("expected 64 character code, got %d", len(code))
	}
}

func TestGenerateInviteCode_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := generateInviteCode()
		if err != nil {
			t.Fatalf("failed to generate invite code: %v", err)
		}
		if seen[code] {
			t.Fatal("generated duplicate invite code")
		}
		seen[code] = true
	}
}

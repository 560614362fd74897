package auth

import (
	"testing"
	"time"
)

func TestGenerateAndValidateToken(t *testing.T) {
	a := NewAuthenticator("super-secret-key", IssuerRealtime, time.Hour)

	token, err := a.GenerateToken(42, "ada", "Ada Lovelace")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	if token == "" {
		t.Fatal("generated token is empty")
	}

	claims, err := a.ValidateToken(token)
	if err != nil {
		t.Fatalf("failed to validate token: %v", err)
	}

	if claims.UserID != 42 {
		t.Errorf("expected user id 42, got %d", claims.UserID)
	}
	if claims.Handle != "ada" {
		t.Errorf("expected handle ada, got %s", claims.Handle)
	}
	if claims.DisplayName != "Ada Lovelace" {
		t.Errorf("expected display name Ada Lovelace, got %s", claims.DisplayName)
	}
	if claims.Issuer != IssuerRealtime {
		t.Errorf("expected issuer %s, got %s", IssuerRealtime, claims.Issuer)
	}
}

func TestExpiredToken(t *testing.T) {
	a := NewAuthenticator("super-secret-key", IssuerRealtime, -time.Minute)

	token, err := a.GenerateToken(1, "u", "U")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	if _, err := a.ValidateToken(token); err == nil {
		t.Fatal("expected error for expired token, got nil")
	}
}

func TestInvalidSignature(t *testing.T) {
	a1 := NewAuthenticator("secret1", IssuerRealtime, time.Hour)
	a2 := NewAuthenticator("secret2", IssuerRealtime, time.Hour)

	token, _ := a1.GenerateToken(1, "u", "U")

	if _, err := a2.ValidateToken(token); err == nil {
		t.Fatal("expected error for invalid signature, got nil")
	}
}

func TestWrongIssuerRejected(t *testing.T) {
	session := NewAuthenticator("shared-secret", IssuerSession, time.Hour)
	realtime := NewAuthenticator("shared-secret", IssuerRealtime, time.Hour)

	token, err := session.GenerateToken(1, "u", "U")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	// A session token must never open a realtime connection.
	if _, err := realtime.ValidateToken(token); err == nil {
		t.Fatal("expected realtime validator to reject session-issued token")
	}
}

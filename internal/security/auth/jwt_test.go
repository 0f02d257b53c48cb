package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mergington/activities/internal/domain"
)

func TestIssueAndVerify(t *testing.T) {
	tm := NewTokenManager("test-secret", "test-issuer")

	token, err := tm.Issue("michael@mergington.edu", time.Minute)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	email, err := tm.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if email != "michael@mergington.edu" {
		t.Errorf("expected subject michael@mergington.edu, got %s", email)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	tm := NewTokenManager("test-secret", "test-issuer")

	now := time.Now()
	claims := Claims{
		Email: "daniel@mergington.edu",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "daniel@mergington.edu",
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
			Issuer:    tm.issuer,
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(tm.secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	if _, err := tm.Verify(token); !errors.Is(err, domain.ErrExpiredToken) {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer := NewTokenManager("secret-a", "test-issuer")
	verifier := NewTokenManager("secret-b", "test-issuer")

	token, err := issuer.Issue("olivia@mergington.edu", time.Minute)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := verifier.Verify(token); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyGarbage(t *testing.T) {
	tm := NewTokenManager("test-secret", "test-issuer")

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := tm.Verify(token); !errors.Is(err, domain.ErrInvalidToken) {
			t.Errorf("token %q: expected ErrInvalidToken, got %v", token, err)
		}
	}
}

func TestIssueRequiresSubject(t *testing.T) {
	tm := NewTokenManager("test-secret", "test-issuer")
	if _, err := tm.Issue("", time.Minute); err == nil {
		t.Error("expected error for empty subject")
	}
}

func TestExtractToken(t *testing.T) {
	token, err := ExtractToken("Bearer abc123")
	if err != nil {
		t.Fatalf("ExtractToken failed: %v", err)
	}
	if token != "abc123" {
		t.Errorf("expected abc123, got %s", token)
	}

	for _, header := range []string{"", "abc123", "Basic abc123", "Bearer a b"} {
		if _, err := ExtractToken(header); err == nil {
			t.Errorf("header %q: expected error", header)
		}
	}
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mergington/activities/internal/domain"
	"github.com/mergington/activities/internal/repository/memory"
	"github.com/mergington/activities/internal/security/auth"
)

func newAuthService() *AuthService {
	tokens := auth.NewTokenManager("test-secret", "test-issuer")
	return NewAuthService(memory.NewUserRepository(), tokens, time.Minute, nil)
}

func TestRegister(t *testing.T) {
	svc := newAuthService()

	user, err := svc.Register(context.Background(), "michael@mergington.edu", "Michael", "Rodriguez", "password123")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.ID == 0 {
		t.Error("expected user to be assigned an id")
	}
	if user.Role != domain.RoleStudent {
		t.Errorf("expected role %s, got %s", domain.RoleStudent, user.Role)
	}
	if !user.IsActive {
		t.Error("expected new user to be active")
	}
	if user.PasswordHash == "password123" {
		t.Error("password stored in plain text")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newAuthService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "daniel@mergington.edu", "Daniel", "Chen", "password123"); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	if _, err := svc.Register(ctx, "daniel@mergington.edu", "Dan", "Other", "different456"); !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newAuthService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "", "No", "Email", "password123"); err == nil {
		t.Error("expected error for empty email")
	}
	if _, err := svc.Register(ctx, "short@mergington.edu", "Too", "Short", "abc"); err == nil {
		t.Error("expected error for short password")
	}
}

func TestLogin(t *testing.T) {
	svc := newAuthService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "olivia@mergington.edu", "Olivia", "Johnson", "password123"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	result, err := svc.Login(ctx, "olivia@mergington.edu", "password123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if result.AccessToken == "" {
		t.Error("expected a token")
	}
	if result.TokenType != "Bearer" {
		t.Errorf("expected token type Bearer, got %s", result.TokenType)
	}
	if result.ExpiresIn != 60 {
		t.Errorf("expected expires_in 60, got %d", result.ExpiresIn)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	svc := newAuthService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "emma@mergington.edu", "Emma", "Garcia", "password123"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// Wrong password and unknown email must be indistinguishable.
	if _, err := svc.Login(ctx, "emma@mergington.edu", "wrong-password"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@mergington.edu", "password123"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestCurrentUser(t *testing.T) {
	svc := newAuthService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "sophia@mergington.edu", "Sophia", "Lee", "password123"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	result, err := svc.Login(ctx, "sophia@mergington.edu", "password123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	user, err := svc.CurrentUser(ctx, result.AccessToken)
	if err != nil {
		t.Fatalf("CurrentUser failed: %v", err)
	}
	if user.Email != "sophia@mergington.edu" {
		t.Errorf("expected sophia@mergington.edu, got %s", user.Email)
	}

	if _, err := svc.CurrentUser(ctx, "garbage"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestCurrentUserUnknownSubject(t *testing.T) {
	tokens := auth.NewTokenManager("test-secret", "test-issuer")
	svc := NewAuthService(memory.NewUserRepository(), tokens, time.Minute, nil)

	// Valid signature, but no such user exists.
	token, err := tokens.Issue("ghost@mergington.edu", time.Minute)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := svc.CurrentUser(context.Background(), token); !errors.Is(err, domain.ErrUnknownSubject) {
		t.Errorf("expected ErrUnknownSubject, got %v", err)
	}
}

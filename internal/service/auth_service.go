package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mergington/activities/internal/domain"
	"github.com/mergington/activities/internal/observability/metrics"
	"github.com/mergington/activities/internal/security/auth"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles account registration and authentication
type AuthService struct {
	userRepo domain.UserRepository
	tokens   *auth.TokenManager
	tokenTTL time.Duration
	logger   *slog.Logger
}

// NewAuthService creates a new authentication service. A zero tokenTTL
// falls back to auth.DefaultTokenTTL.
func NewAuthService(
	userRepo domain.UserRepository,
	tokens *auth.TokenManager,
	tokenTTL time.Duration,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	if tokenTTL <= 0 {
		tokenTTL = auth.DefaultTokenTTL
	}

	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
		tokenTTL: tokenTTL,
		logger:   logger,
	}
}

// LoginResult represents login response
type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"` // seconds
}

// Register creates a new user account with a bcrypt-hashed password and
// the default student role. Returns domain.ErrDuplicateEmail when the
// email is taken.
func (s *AuthService) Register(ctx context.Context, email, firstName, lastName, password string) (*domain.User, error) {
	if email == "" || password == "" {
		return nil, errors.New("email and password are required")
	}
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, errors.New("failed to register user")
	}

	user := &domain.User{
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: string(hash),
		IsActive:     true,
		Role:         domain.RoleStudent,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, domain.ErrDuplicateEmail
		}
		s.logger.Error("failed to create user", slog.String("error", err.Error()))
		return nil, errors.New("failed to register user")
	}

	s.logger.Info("user registered",
		slog.Int64("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, nil
}

// Login authenticates a user and returns a bearer token. A missing user
// and a wrong password both produce domain.ErrInvalidCredentials so the
// caller cannot tell which condition failed.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		s.logger.Info("login attempt with non-existent email", slog.String("email", email))
		metrics.ObserveLogin("failure")
		return nil, domain.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("login failed with wrong password", slog.String("email", email))
		metrics.ObserveLogin("failure")
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.Email, s.tokenTTL)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return nil, errors.New("failed to generate token")
	}

	metrics.ObserveLogin("success")
	s.logger.Info("user logged in",
		slog.Int64("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return &LoginResult{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.tokenTTL.Seconds()),
	}, nil
}

// FindByEmail looks a user up with no side effects
func (s *AuthService) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.userRepo.GetByEmail(ctx, email)
}

// CurrentUser resolves a bearer token back to its user. Token problems
// surface as domain.ErrInvalidToken / domain.ErrExpiredToken; a valid
// token whose subject no longer exists yields domain.ErrUnknownSubject.
func (s *AuthService) CurrentUser(ctx context.Context, tokenString string) (*domain.User, error) {
	email, err := s.tokens.Verify(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUnknownSubject
		}
		return nil, err
	}
	return user, nil
}

package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mergington/activities/internal/domain"
)

// DefaultTokenTTL is the single token lifetime default. Callers should
// still pass an explicit TTL; this constant is the only fallback.
const DefaultTokenTTL = 30 * time.Minute

// Claims carried in a bearer token. The subject is the user's email.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates HS256 bearer tokens
type TokenManager struct {
	secret string
	issuer string
}

// NewTokenManager creates a token manager
func NewTokenManager(secret, issuer string) *TokenManager {
	if secret == "" {
		secret = "change-me-in-production"
	}
	if issuer == "" {
		issuer = "mergington-activities"
	}
	return &TokenManager{secret: secret, issuer: issuer}
}

// Issue produces a signed token for the given subject email. A zero or
// negative ttl falls back to DefaultTokenTTL.
func (tm *TokenManager) Issue(subjectEmail string, ttl time.Duration) (string, error) {
	if subjectEmail == "" {
		return "", fmt.Errorf("subject email required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := time.Now()
	claims := Claims{
		Email: subjectEmail,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectEmail,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    tm.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(tm.secret))
}

// Verify validates a token and returns the subject email. Expired tokens
// yield domain.ErrExpiredToken; anything else wrong with the token yields
// domain.ErrInvalidToken.
func (tm *TokenManager) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tm.secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", domain.ErrExpiredToken
		}
		return "", domain.ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", domain.ErrInvalidToken
	}
	if claims.Email == "" {
		return "", domain.ErrInvalidToken
	}
	return claims.Email, nil
}

// ExtractToken pulls the bearer token out of an Authorization header
func ExtractToken(authHeader string) (string, error) {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", fmt.Errorf("invalid authorization header")
	}
	return parts[1], nil
}

package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/mergington/activities/internal/domain"
	"github.com/mergington/activities/internal/security/auth"
	"github.com/mergington/activities/internal/security/ratelimit"
	"github.com/mergington/activities/internal/service"
)

type UserContextKey struct{}

// RequireAuth guards a route with bearer-token authentication. The
// resolved user is placed on the request context. Only /api/me is
// protected today; signup and unregister identify the subject by email,
// matching the legacy surface.
func RequireAuth(authService *service.AuthService, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"error":"missing auth"}`, http.StatusUnauthorized)
				return
			}

			tokenString, err := auth.ExtractToken(authHeader)
			if err != nil {
				http.Error(w, `{"error":"invalid auth"}`, http.StatusUnauthorized)
				return
			}

			user, err := authService.CurrentUser(r.Context(), tokenString)
			if err != nil {
				log.Info("token rejected", slog.String("reason", err.Error()))
				http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserFromContext returns the authenticated user, or nil outside a
// RequireAuth-guarded route.
func GetUserFromContext(ctx context.Context) *domain.User {
	if u := ctx.Value(UserContextKey{}); u != nil {
		if user, ok := u.(*domain.User); ok {
			return user
		}
	}
	return nil
}

// RateLimitMiddleware applies a per-IP sliding window limit, with a
// stricter budget on the credential endpoints.
func RateLimitMiddleware(limiter *ratelimit.Limiter, authLimit int, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" || r.URL.Path == "/readyz" || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r)

			if r.URL.Path == "/api/register" || r.URL.Path == "/api/login" {
				if !limiter.AllowStrict(ip, authLimit, limiterWindow) {
					log.Warn("auth rate limit exceeded", slog.String("ip", ip), slog.String("path", r.URL.Path))
					http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if !limiter.Allow(ip) {
				http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// limiterWindow is the strict-limit window for credential endpoints
const limiterWindow = time.Minute

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

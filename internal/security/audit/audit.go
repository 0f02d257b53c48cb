package audit

import (
	"context"
	"log/slog"
	"time"
)

// Logger emits structured audit records for account and roster changes
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates an audit logger
func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

// LogAction writes one audit line
func (al *Logger) LogAction(ctx context.Context, email, action, resource, resourceID, status, details string) {
	requestID := ""
	if reqID := ctx.Value("request_id"); reqID != nil {
		requestID, _ = reqID.(string)
	}

	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("email", email),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", requestID),
		slog.Time("timestamp", time.Now()),
	)
}

// LogSignup records a signup attempt outcome
func (al *Logger) LogSignup(ctx context.Context, email, activityID, status, details string) {
	al.LogAction(ctx, email, "signup", "activity", activityID, status, details)
}

// LogUnregister records an unregister attempt outcome
func (al *Logger) LogUnregister(ctx context.Context, email, activityID, status, details string) {
	al.LogAction(ctx, email, "unregister", "activity", activityID, status, details)
}

// LogRegister records an account registration outcome
func (al *Logger) LogRegister(ctx context.Context, email, status, details string) {
	al.LogAction(ctx, email, "register", "user", "", status, details)
}

// LogLogin records a login outcome
func (al *Logger) LogLogin(ctx context.Context, email, status string) {
	al.LogAction(ctx, email, "login", "user", "", status, "")
}

package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mergington/activities/internal/domain"
	"github.com/mergington/activities/internal/events"
	"github.com/mergington/activities/internal/observability/metrics"
)

// RegistrationService owns the registration ledger: signup and unregister
// with their ordered failure checks. The per-pair state machine is
// Unregistered -> Registered -> Unregistered; nothing else.
type RegistrationService struct {
	users         domain.UserRepository
	activities    domain.ActivityRepository
	registrations domain.RegistrationRepository
	hub           *events.Hub
	logger        *slog.Logger
}

// NewRegistrationService creates a registration service
func NewRegistrationService(
	users domain.UserRepository,
	activities domain.ActivityRepository,
	registrations domain.RegistrationRepository,
	hub *events.Hub,
	logger *slog.Logger,
) *RegistrationService {
	if logger == nil {
		logger = slog.Default()
	}

	return &RegistrationService{
		users:         users,
		activities:    activities,
		registrations: registrations,
		hub:           hub,
		logger:        logger,
	}
}

// Signup registers a user for an activity. Failure order: activity not
// found, user not found, already registered, activity full. The final
// capacity check runs inside the repository's transaction, so the early
// checks here only shape error reporting; they cannot race the invariant.
func (s *RegistrationService) Signup(ctx context.Context, activityID int64, email string) (*domain.Registration, error) {
	start := time.Now()

	activity, err := s.activities.GetByID(ctx, activityID)
	if err != nil {
		return nil, s.observeSignup(start, err)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, s.observeSignup(start, err)
	}

	exists, err := s.registrations.Exists(ctx, user.ID, activityID)
	if err != nil {
		return nil, s.observeSignup(start, err)
	}
	if exists {
		return nil, s.observeSignup(start, domain.ErrAlreadyRegistered)
	}

	reg := &domain.Registration{
		UserID:     user.ID,
		ActivityID: activityID,
	}
	if err := s.registrations.Create(ctx, reg); err != nil {
		return nil, s.observeSignup(start, err)
	}

	s.observeSignup(start, nil)
	s.logger.Info("signup",
		slog.String("email", email),
		slog.Int64("activity_id", activityID),
		slog.String("activity", activity.Name),
	)
	s.publishRosterEvent(ctx, events.TypeSignup, activity, email)

	return reg, nil
}

// Unregister withdraws a user from an activity. Failure order: user not
// found, not registered. There is no capacity side effect beyond the
// derived count decreasing.
func (s *RegistrationService) Unregister(ctx context.Context, activityID int64, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		metrics.ObserveRegistration("unregister", resultLabel(err))
		return err
	}

	if err := s.registrations.Delete(ctx, user.ID, activityID); err != nil {
		metrics.ObserveRegistration("unregister", resultLabel(err))
		return err
	}

	metrics.ObserveRegistration("unregister", "success")
	s.logger.Info("unregister",
		slog.String("email", email),
		slog.Int64("activity_id", activityID),
	)

	if activity, err := s.activities.GetByID(ctx, activityID); err == nil {
		s.publishRosterEvent(ctx, events.TypeUnregister, activity, email)
	}

	return nil
}

func (s *RegistrationService) publishRosterEvent(ctx context.Context, eventType string, activity *domain.Activity, email string) {
	if s.hub == nil {
		return
	}
	count, err := s.registrations.CountByActivity(ctx, activity.ID)
	if err != nil {
		s.logger.Warn("failed to count participants for roster event",
			slog.Int64("activity_id", activity.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.hub.Publish(ctx, events.RosterEvent{
		Type:                eventType,
		ActivityID:          activity.ID,
		ActivityName:        activity.Name,
		Email:               email,
		CurrentParticipants: count,
		MaxParticipants:     activity.MaxParticipants,
	})
}

func (s *RegistrationService) observeSignup(start time.Time, err error) error {
	result := resultLabel(err)
	metrics.ObserveRegistration("signup", result)
	metrics.ObserveSignupDuration(result, time.Since(start))
	return err
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrActivityNotFound):
		return "activity_not_found"
	case errors.Is(err, domain.ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, domain.ErrAlreadyRegistered):
		return "already_registered"
	case errors.Is(err, domain.ErrActivityFull):
		return "activity_full"
	case errors.Is(err, domain.ErrNotRegistered):
		return "not_registered"
	default:
		return "error"
	}
}

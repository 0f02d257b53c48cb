package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mergington/activities/internal/domain"
)

// PostgresRegistrationRepository implements domain.RegistrationRepository
// using PostgreSQL
type PostgresRegistrationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresRegistrationRepository creates a new registration repository
func NewPostgresRegistrationRepository(db *sql.DB, logger *slog.Logger) *PostgresRegistrationRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresRegistrationRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a registration, enforcing the capacity invariant.
//
// The activity row is locked FOR UPDATE for the duration of the
// transaction, so the count and the insert observe a consistent state:
// two callers racing for the last seat serialize on the row lock and the
// loser sees a full activity. The UNIQUE(user_id, activity_id) constraint
// backs the one-registration-per-pair invariant even if two requests for
// the same pair race.
func (r *PostgresRegistrationRepository) Create(ctx context.Context, reg *domain.Registration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	var maxParticipants int
	err = tx.QueryRowContext(ctx, `
		SELECT max_participants
		FROM activities
		WHERE id = $1
		FOR UPDATE
	`, reg.ActivityID).Scan(&maxParticipants)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrActivityNotFound
		}
		return fmt.Errorf("failed to lock activity: %w", err)
	}

	var current int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM registrations WHERE activity_id = $1
	`, reg.ActivityID).Scan(&current)
	if err != nil {
		return fmt.Errorf("failed to count registrations: %w", err)
	}

	if current >= maxParticipants {
		return domain.ErrActivityFull
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO registrations (user_id, activity_id)
		VALUES ($1, $2)
		RETURNING id, registered_at
	`, reg.UserID, reg.ActivityID).Scan(&reg.ID, &reg.RegisteredAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyRegistered
		}
		r.logger.Error("failed to insert registration",
			slog.Int64("user_id", reg.UserID),
			slog.Int64("activity_id", reg.ActivityID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to insert registration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tx: %w", err)
	}

	return nil
}

// Exists reports whether a registration exists for the (user, activity) pair
func (r *PostgresRegistrationRepository) Exists(ctx context.Context, userID, activityID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM registrations WHERE user_id = $1 AND activity_id = $2
		)
	`, userID, activityID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check registration: %w", err)
	}
	return exists, nil
}

// Delete removes the registration for the (user, activity) pair. Returns
// domain.ErrNotRegistered when no matching row exists.
func (r *PostgresRegistrationRepository) Delete(ctx context.Context, userID, activityID int64) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM registrations WHERE user_id = $1 AND activity_id = $2
	`, userID, activityID)
	if err != nil {
		return fmt.Errorf("failed to delete registration: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rows == 0 {
		return domain.ErrNotRegistered
	}

	return nil
}

// CountByActivity returns the current participant count for an activity
func (r *PostgresRegistrationRepository) CountByActivity(ctx context.Context, activityID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM registrations WHERE activity_id = $1
	`, activityID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count registrations: %w", err)
	}
	return count, nil
}

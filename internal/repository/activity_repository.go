package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mergington/activities/internal/domain"
)

// PostgresActivityRepository implements domain.ActivityRepository using PostgreSQL
type PostgresActivityRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresActivityRepository creates a new activity repository
func NewPostgresActivityRepository(db *sql.DB, logger *slog.Logger) *PostgresActivityRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresActivityRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new activity. Returns domain.ErrDuplicateActivity when
// the name is already taken.
func (r *PostgresActivityRepository) Create(ctx context.Context, activity *domain.Activity) error {
	query := `
		INSERT INTO activities (name, description, schedule, max_participants)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		activity.Name,
		activity.Description,
		activity.Schedule,
		activity.MaxParticipants,
	).Scan(&activity.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateActivity
		}
		r.logger.Error("failed to create activity",
			slog.String("name", activity.Name),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create activity: %w", err)
	}

	return nil
}

// GetByID retrieves an activity by ID
func (r *PostgresActivityRepository) GetByID(ctx context.Context, id int64) (*domain.Activity, error) {
	activity := &domain.Activity{}

	query := `
		SELECT id, name, description, schedule, max_participants
		FROM activities
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&activity.ID,
		&activity.Name,
		&activity.Description,
		&activity.Schedule,
		&activity.MaxParticipants,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrActivityNotFound
		}
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}

	return activity, nil
}

// ListWithCounts returns every activity with a freshly computed participant
// count. The count is derived via an aggregate over registrations at read
// time; no stored or cached counter exists to go stale.
func (r *PostgresActivityRepository) ListWithCounts(ctx context.Context) ([]domain.ActivitySummary, error) {
	query := `
		SELECT a.id, a.name, a.description, a.schedule, a.max_participants,
		       COUNT(reg.id)
		FROM activities a
		LEFT JOIN registrations reg ON reg.activity_id = a.id
		GROUP BY a.id
		ORDER BY a.id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("failed to list activities",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	var summaries []domain.ActivitySummary
	for rows.Next() {
		var s domain.ActivitySummary
		err := rows.Scan(
			&s.ID,
			&s.Name,
			&s.Description,
			&s.Schedule,
			&s.MaxParticipants,
			&s.CurrentParticipants,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}

// Count returns the number of activities in the catalog
func (r *PostgresActivityRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activities`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count activities: %w", err)
	}
	return count, nil
}

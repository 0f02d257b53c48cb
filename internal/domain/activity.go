package domain

import (
	"context"
	"time"
)

// Activity is a catalog entry. Read-mostly: created at startup seeding or
// by an admin, never updated by the signup path.
type Activity struct {
	ID              int64
	Name            string // Unique activity name
	Description     string
	Schedule        string
	MaxParticipants int
}

// ActivitySummary pairs an activity with its participant count. The count
// is always computed from the registrations table at read time, never
// stored or cached, so callers see the capacity invariant directly.
type ActivitySummary struct {
	Activity
	CurrentParticipants int
}

// Registration links one user to one activity. Create-or-delete only;
// there is no update operation. At most one registration exists per
// (user, activity) pair.
type Registration struct {
	ID           int64
	UserID       int64
	ActivityID   int64
	RegisteredAt time.Time
}

// ActivityRepository defines data access for the activity catalog
type ActivityRepository interface {
	Create(ctx context.Context, activity *Activity) error
	GetByID(ctx context.Context, id int64) (*Activity, error)
	ListWithCounts(ctx context.Context) ([]ActivitySummary, error)
	Count(ctx context.Context) (int, error)
}

// RegistrationRepository defines data access for the registration ledger.
//
// Create must treat the capacity check and the insert as one atomic unit:
// under concurrent signups for the last open seat, at most one caller may
// succeed and the rest must see ErrActivityFull. The Postgres
// implementation takes a row lock on the activity inside a transaction;
// the in-memory implementation serializes on a mutex.
type RegistrationRepository interface {
	Create(ctx context.Context, reg *Registration) error
	Exists(ctx context.Context, userID, activityID int64) (bool, error)
	Delete(ctx context.Context, userID, activityID int64) error
	CountByActivity(ctx context.Context, activityID int64) (int, error)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mergington/activities/internal/domain"
	"github.com/mergington/activities/pkg/cache"
)

// metadataTTL bounds staleness of cached activity metadata. Counts are
// never cached at all.
const metadataTTL = time.Minute

// CatalogService exposes the activity catalog
type CatalogService struct {
	activities domain.ActivityRepository
	cache      *cache.Cache
	logger     *slog.Logger
}

// NewCatalogService creates a catalog service
func NewCatalogService(activities domain.ActivityRepository, c *cache.Cache, logger *slog.Logger) *CatalogService {
	if logger == nil {
		logger = slog.Default()
	}
	if c == nil {
		c = cache.New()
	}

	return &CatalogService{
		activities: activities,
		cache:      c,
		logger:     logger,
	}
}

// List returns every activity with a freshly computed participant count
func (s *CatalogService) List(ctx context.Context) ([]domain.ActivitySummary, error) {
	return s.activities.ListWithCounts(ctx)
}

// GetByID returns one activity's metadata. Metadata is read-mostly and
// cached briefly; the participant count is deliberately not part of this
// lookup.
func (s *CatalogService) GetByID(ctx context.Context, id int64) (*domain.Activity, error) {
	key := fmt.Sprintf("activity:%d", id)
	if v, ok := s.cache.Get(key); ok {
		if a, ok := v.(*domain.Activity); ok {
			return a, nil
		}
	}

	activity, err := s.activities.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, activity, metadataTTL)
	return activity, nil
}

// Create adds a new activity to the catalog. Returns
// domain.ErrDuplicateActivity when the name is taken.
func (s *CatalogService) Create(ctx context.Context, name, description, schedule string, maxParticipants int) (*domain.Activity, error) {
	if name == "" {
		return nil, errors.New("name is required")
	}
	if maxParticipants <= 0 {
		return nil, errors.New("max_participants must be positive")
	}

	activity := &domain.Activity{
		Name:            name,
		Description:     description,
		Schedule:        schedule,
		MaxParticipants: maxParticipants,
	}

	if err := s.activities.Create(ctx, activity); err != nil {
		if errors.Is(err, domain.ErrDuplicateActivity) {
			return nil, domain.ErrDuplicateActivity
		}
		s.logger.Error("failed to create activity",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		return nil, errors.New("failed to create activity")
	}

	s.cache.Invalidate("activity:")
	s.logger.Info("activity created",
		slog.Int64("activity_id", activity.ID),
		slog.String("name", activity.Name),
	)
	return activity, nil
}

// SeedIfEmpty inserts the starter catalog when no activities exist yet.
// Idempotent: a non-empty catalog makes it a no-op, so restarts never
// duplicate activities.
func (s *CatalogService) SeedIfEmpty(ctx context.Context) error {
	count, err := s.activities.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to check catalog: %w", err)
	}
	if count > 0 {
		s.logger.Info("catalog already seeded", slog.Int("activities", count))
		return nil
	}

	for i := range DefaultActivities {
		a := DefaultActivities[i]
		if err := s.activities.Create(ctx, &a); err != nil {
			return fmt.Errorf("failed to seed activity %q: %w", a.Name, err)
		}
	}

	s.logger.Info("catalog seeded", slog.Int("activities", len(DefaultActivities)))
	return nil
}

// DefaultActivities is the fixed starter set inserted on first run
var DefaultActivities = []domain.Activity{
	{Name: "Chess Club", Description: "Learn strategies and compete in chess tournaments", Schedule: "Fridays, 3:30 PM - 5:00 PM", MaxParticipants: 12},
	{Name: "Programming Class", Description: "Learn programming fundamentals and build software projects", Schedule: "Tuesdays and Thursdays, 3:30 PM - 4:30 PM", MaxParticipants: 20},
	{Name: "Gym Class", Description: "Physical education and sports activities", Schedule: "Mondays, Wednesdays, Fridays, 2:00 PM - 3:00 PM", MaxParticipants: 30},
	{Name: "Soccer Team", Description: "Join the school soccer team and compete in matches", Schedule: "Tuesdays and Thursdays, 4:00 PM - 5:30 PM", MaxParticipants: 22},
	{Name: "Basketball Team", Description: "Practice and play basketball with the school team", Schedule: "Wednesdays and Fridays, 3:30 PM - 5:00 PM", MaxParticipants: 15},
	{Name: "Art Club", Description: "Explore your creativity through painting and drawing", Schedule: "Thursdays, 3:30 PM - 5:00 PM", MaxParticipants: 15},
	{Name: "Drama Club", Description: "Act, direct, and produce plays and performances", Schedule: "Mondays and Wednesdays, 4:00 PM - 5:30 PM", MaxParticipants: 20},
	{Name: "Math Club", Description: "Solve challenging problems and participate in math competitions", Schedule: "Tuesdays, 3:30 PM - 4:30 PM", MaxParticipants: 10},
	{Name: "Debate Team", Description: "Develop public speaking and argumentation skills", Schedule: "Fridays, 4:00 PM - 5:30 PM", MaxParticipants: 12},
	{Name: "Science Club", Description: "Conduct experiments and explore scientific concepts", Schedule: "Wednesdays, 3:00 PM - 4:30 PM", MaxParticipants: 18},
	{Name: "Music Band", Description: "Learn to play instruments and perform as a band", Schedule: "Tuesdays and Thursdays, 3:00 PM - 4:00 PM", MaxParticipants: 25},
	{Name: "Photography Club", Description: "Capture and edit photos, learn photography techniques", Schedule: "Mondays, 4:00 PM - 5:30 PM", MaxParticipants: 14},
	{Name: "Robotics Team", Description: "Build and program robots for competitions", Schedule: "Fridays, 2:00 PM - 4:00 PM", MaxParticipants: 16},
	{Name: "Environmental Club", Description: "Promote sustainability and environmental awareness", Schedule: "Thursdays, 4:00 PM - 5:00 PM", MaxParticipants: 20},
	{Name: "Cooking Class", Description: "Learn cooking basics and prepare healthy meals", Schedule: "Wednesdays, 4:00 PM - 5:30 PM", MaxParticipants: 12},
}

// Package memory provides in-memory repository implementations used by
// unit and integration tests. They enforce the same invariants as the
// Postgres repositories: unique emails and activity names, at most one
// registration per (user, activity) pair, and an atomic capacity check
// serialized on a mutex.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mergington/activities/internal/domain"
)

// UserRepository is an in-memory domain.UserRepository
type UserRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*domain.User
}

// NewUserRepository creates an empty user repository
func NewUserRepository() *UserRepository {
	return &UserRepository{byID: map[int64]*domain.User{}}
}

func (m *UserRepository) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return domain.ErrDuplicateEmail
		}
	}
	m.nextID++
	u.ID = m.nextID
	u.CreatedAt = time.Now()
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *UserRepository) GetByID(_ context.Context, id int64) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// ActivityRepository is an in-memory domain.ActivityRepository. It shares
// registration state with RegistrationRepository via a Store.
type ActivityRepository struct {
	store *Store
}

// RegistrationRepository is an in-memory domain.RegistrationRepository
type RegistrationRepository struct {
	store *Store
}

// Store holds activities and registrations behind one mutex so the
// capacity check and insert are atomic, mirroring the row lock the
// Postgres implementation takes.
type Store struct {
	mu         sync.Mutex
	nextActID  int64
	nextRegID  int64
	activities map[int64]*domain.Activity
	regs       map[int64]*domain.Registration
}

// NewStore creates an empty activity/registration store
func NewStore() *Store {
	return &Store{
		activities: map[int64]*domain.Activity{},
		regs:       map[int64]*domain.Registration{},
	}
}

// Activities returns the activity repository view of the store
func (s *Store) Activities() *ActivityRepository {
	return &ActivityRepository{store: s}
}

// Registrations returns the registration repository view of the store
func (s *Store) Registrations() *RegistrationRepository {
	return &RegistrationRepository{store: s}
}

func (r *ActivityRepository) Create(_ context.Context, a *domain.Activity) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.activities {
		if existing.Name == a.Name {
			return domain.ErrDuplicateActivity
		}
	}
	s.nextActID++
	a.ID = s.nextActID
	cp := *a
	s.activities[a.ID] = &cp
	return nil
}

func (r *ActivityRepository) GetByID(_ context.Context, id int64) (*domain.Activity, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.activities[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, domain.ErrActivityNotFound
}

func (r *ActivityRepository) ListWithCounts(_ context.Context) ([]domain.ActivitySummary, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := map[int64]int{}
	for _, reg := range s.regs {
		counts[reg.ActivityID]++
	}

	var out []domain.ActivitySummary
	for id := int64(1); id <= s.nextActID; id++ {
		a, ok := s.activities[id]
		if !ok {
			continue
		}
		out = append(out, domain.ActivitySummary{
			Activity:            *a,
			CurrentParticipants: counts[id],
		})
	}
	return out, nil
}

func (r *ActivityRepository) Count(_ context.Context) (int, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activities), nil
}

func (r *RegistrationRepository) Create(_ context.Context, reg *domain.Registration) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	activity, ok := s.activities[reg.ActivityID]
	if !ok {
		return domain.ErrActivityNotFound
	}

	current := 0
	for _, existing := range s.regs {
		if existing.ActivityID == reg.ActivityID {
			if existing.UserID == reg.UserID {
				return domain.ErrAlreadyRegistered
			}
			current++
		}
	}

	if current >= activity.MaxParticipants {
		return domain.ErrActivityFull
	}

	s.nextRegID++
	reg.ID = s.nextRegID
	reg.RegisteredAt = time.Now()
	cp := *reg
	s.regs[reg.ID] = &cp
	return nil
}

func (r *RegistrationRepository) Exists(_ context.Context, userID, activityID int64) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, reg := range s.regs {
		if reg.UserID == userID && reg.ActivityID == activityID {
			return true, nil
		}
	}
	return false, nil
}

func (r *RegistrationRepository) Delete(_ context.Context, userID, activityID int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, reg := range s.regs {
		if reg.UserID == userID && reg.ActivityID == activityID {
			delete(s.regs, id)
			return nil
		}
	}
	return domain.ErrNotRegistered
}

func (r *RegistrationRepository) CountByActivity(_ context.Context, activityID int64) (int, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, reg := range s.regs {
		if reg.ActivityID == activityID {
			count++
		}
	}
	return count, nil
}

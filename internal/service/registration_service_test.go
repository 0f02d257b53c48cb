package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/mergington/activities/internal/domain"
	"github.com/mergington/activities/internal/repository/memory"
)

type registrationFixture struct {
	users *memory.UserRepository
	store *memory.Store
	svc   *RegistrationService
}

func newRegistrationFixture(t *testing.T) *registrationFixture {
	t.Helper()
	users := memory.NewUserRepository()
	store := memory.NewStore()
	svc := NewRegistrationService(users, store.Activities(), store.Registrations(), nil, nil)
	return &registrationFixture{users: users, store: store, svc: svc}
}

func (f *registrationFixture) addUser(t *testing.T, email string) *domain.User {
	t.Helper()
	user := &domain.User{
		Email:        email,
		FirstName:    "Test",
		LastName:     "Student",
		PasswordHash: "x",
		IsActive:     true,
		Role:         domain.RoleStudent,
	}
	if err := f.users.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user %s: %v", email, err)
	}
	return user
}

func (f *registrationFixture) addActivity(t *testing.T, name string, max int) *domain.Activity {
	t.Helper()
	activity := &domain.Activity{
		Name:            name,
		Description:     "test activity",
		Schedule:        "Fridays, 3:30 PM - 5:00 PM",
		MaxParticipants: max,
	}
	if err := f.store.Activities().Create(context.Background(), activity); err != nil {
		t.Fatalf("failed to create activity %s: %v", name, err)
	}
	return activity
}

func TestSignup(t *testing.T) {
	f := newRegistrationFixture(t)
	ctx := context.Background()
	user := f.addUser(t, "michael@mergington.edu")
	activity := f.addActivity(t, "Chess Club", 12)

	reg, err := f.svc.Signup(ctx, activity.ID, user.Email)
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	if reg.UserID != user.ID || reg.ActivityID != activity.ID {
		t.Errorf("registration links wrong pair: user %d activity %d", reg.UserID, reg.ActivityID)
	}

	count, err := f.store.Registrations().CountByActivity(ctx, activity.ID)
	if err != nil {
		t.Fatalf("CountByActivity failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 participant, got %d", count)
	}
}

func TestSignupActivityNotFound(t *testing.T) {
	f := newRegistrationFixture(t)
	f.addUser(t, "michael@mergington.edu")

	if _, err := f.svc.Signup(context.Background(), 9999, "michael@mergington.edu"); !errors.Is(err, domain.ErrActivityNotFound) {
		t.Errorf("expected ErrActivityNotFound, got %v", err)
	}
}

func TestSignupUserNotFound(t *testing.T) {
	f := newRegistrationFixture(t)
	activity := f.addActivity(t, "Chess Club", 12)

	if _, err := f.svc.Signup(context.Background(), activity.ID, "nobody@mergington.edu"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

// A missing activity is reported before a missing user when both are absent.
func TestSignupFailureOrder(t *testing.T) {
	f := newRegistrationFixture(t)

	if _, err := f.svc.Signup(context.Background(), 9999, "nobody@mergington.edu"); !errors.Is(err, domain.ErrActivityNotFound) {
		t.Errorf("expected ErrActivityNotFound, got %v", err)
	}
}

func TestSignupAlreadyRegistered(t *testing.T) {
	f := newRegistrationFixture(t)
	ctx := context.Background()
	user := f.addUser(t, "daniel@mergington.edu")
	activity := f.addActivity(t, "Chess Club", 12)

	if _, err := f.svc.Signup(ctx, activity.ID, user.Email); err != nil {
		t.Fatalf("first Signup failed: %v", err)
	}
	if _, err := f.svc.Signup(ctx, activity.ID, user.Email); !errors.Is(err, domain.ErrAlreadyRegistered) {
		t.Errorf("expected ErrAlreadyRegistered, got %v", err)
	}

	count, _ := f.store.Registrations().CountByActivity(ctx, activity.ID)
	if count != 1 {
		t.Errorf("duplicate signup changed the count: %d", count)
	}
}

func TestSignupActivityFull(t *testing.T) {
	f := newRegistrationFixture(t)
	ctx := context.Background()
	activity := f.addActivity(t, "Math Club", 2)

	for i := 0; i < 2; i++ {
		user := f.addUser(t, fmt.Sprintf("student%d@mergington.edu", i))
		if _, err := f.svc.Signup(ctx, activity.ID, user.Email); err != nil {
			t.Fatalf("Signup %d failed: %v", i, err)
		}
	}

	late := f.addUser(t, "late@mergington.edu")
	if _, err := f.svc.Signup(ctx, activity.ID, late.Email); !errors.Is(err, domain.ErrActivityFull) {
		t.Errorf("expected ErrActivityFull, got %v", err)
	}
}

func TestUnregister(t *testing.T) {
	f := newRegistrationFixture(t)
	ctx := context.Background()
	user := f.addUser(t, "olivia@mergington.edu")
	activity := f.addActivity(t, "Art Club", 15)

	if _, err := f.svc.Signup(ctx, activity.ID, user.Email); err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	if err := f.svc.Unregister(ctx, activity.ID, user.Email); err != nil {
		t.Fatalf("Unregister failed: %v", err)
	}

	count, _ := f.store.Registrations().CountByActivity(ctx, activity.ID)
	if count != 0 {
		t.Errorf("expected 0 participants after unregister, got %d", count)
	}

	// Unregister is not idempotent: the second attempt reports the pair
	// is no longer registered.
	if err := f.svc.Unregister(ctx, activity.ID, user.Email); !errors.Is(err, domain.ErrNotRegistered) {
		t.Errorf("expected ErrNotRegistered, got %v", err)
	}
}

func TestUnregisterUserNotFound(t *testing.T) {
	f := newRegistrationFixture(t)
	activity := f.addActivity(t, "Art Club", 15)

	if err := f.svc.Unregister(context.Background(), activity.ID, "nobody@mergington.edu"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUnregisterNotRegistered(t *testing.T) {
	f := newRegistrationFixture(t)
	user := f.addUser(t, "emma@mergington.edu")
	activity := f.addActivity(t, "Art Club", 15)

	if err := f.svc.Unregister(context.Background(), activity.ID, user.Email); !errors.Is(err, domain.ErrNotRegistered) {
		t.Errorf("expected ErrNotRegistered, got %v", err)
	}
}

// Signup followed by unregister restores the original state, so the same
// user can sign up again.
func TestSignupUnregisterRoundTrip(t *testing.T) {
	f := newRegistrationFixture(t)
	ctx := context.Background()
	user := f.addUser(t, "sophia@mergington.edu")
	activity := f.addActivity(t, "Drama Club", 20)

	if _, err := f.svc.Signup(ctx, activity.ID, user.Email); err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	if err := f.svc.Unregister(ctx, activity.ID, user.Email); err != nil {
		t.Fatalf("Unregister failed: %v", err)
	}
	if _, err := f.svc.Signup(ctx, activity.ID, user.Email); err != nil {
		t.Fatalf("re-Signup failed: %v", err)
	}
}

// Two simultaneous signups for the last seat: exactly one wins.
func TestConcurrentSignupLastSeat(t *testing.T) {
	f := newRegistrationFixture(t)
	ctx := context.Background()
	activity := f.addActivity(t, "Solo Club", 1)
	a := f.addUser(t, "a@mergington.edu")
	b := f.addUser(t, "b@mergington.edu")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, email := range []string{a.Email, b.Email} {
		wg.Add(1)
		go func(i int, email string) {
			defer wg.Done()
			_, errs[i] = f.svc.Signup(ctx, activity.ID, email)
		}(i, email)
	}
	wg.Wait()

	successes, fulls := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domain.ErrActivityFull):
			fulls++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if successes != 1 || fulls != 1 {
		t.Errorf("expected exactly one winner, got %d successes and %d full errors", successes, fulls)
	}

	count, _ := f.store.Registrations().CountByActivity(ctx, activity.ID)
	if count != 1 {
		t.Errorf("capacity breached: %d registrations for 1 seat", count)
	}
}

// 100 students race for 5 seats. The count must never exceed capacity.
func TestConcurrentSignupCapacity(t *testing.T) {
	const seats = 5
	const students = 100

	f := newRegistrationFixture(t)
	ctx := context.Background()
	activity := f.addActivity(t, "Popular Club", seats)

	emails := make([]string, students)
	for i := range emails {
		emails[i] = fmt.Sprintf("student%d@mergington.edu", i)
		f.addUser(t, emails[i])
	}

	var wg sync.WaitGroup
	errs := make([]error, students)
	for i := range emails {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Signup(ctx, activity.ID, emails[i])
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domain.ErrActivityFull):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if successes != seats {
		t.Errorf("expected %d successful signups, got %d", seats, successes)
	}

	count, _ := f.store.Registrations().CountByActivity(ctx, activity.ID)
	if count != seats {
		t.Errorf("expected %d registrations, got %d", seats, count)
	}
}

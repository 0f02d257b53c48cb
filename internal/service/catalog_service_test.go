package service

import (
	"context"
	"errors"
	"testing"

	"github.com/mergington/activities/internal/domain"
	"github.com/mergington/activities/internal/repository/memory"
)

func TestSeedIfEmpty(t *testing.T) {
	store := memory.NewStore()
	svc := NewCatalogService(store.Activities(), nil, nil)
	ctx := context.Background()

	if err := svc.SeedIfEmpty(ctx); err != nil {
		t.Fatalf("SeedIfEmpty failed: %v", err)
	}

	activities, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(activities) != len(DefaultActivities) {
		t.Fatalf("expected %d activities, got %d", len(DefaultActivities), len(activities))
	}
	for _, a := range activities {
		if a.CurrentParticipants != 0 {
			t.Errorf("%s: expected zero participants after seeding, got %d", a.Name, a.CurrentParticipants)
		}
	}
}

func TestSeedIfEmptyIsIdempotent(t *testing.T) {
	store := memory.NewStore()
	svc := NewCatalogService(store.Activities(), nil, nil)
	ctx := context.Background()

	if err := svc.SeedIfEmpty(ctx); err != nil {
		t.Fatalf("first SeedIfEmpty failed: %v", err)
	}
	if err := svc.SeedIfEmpty(ctx); err != nil {
		t.Fatalf("second SeedIfEmpty failed: %v", err)
	}

	activities, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(activities) != len(DefaultActivities) {
		t.Errorf("expected %d activities after reseeding, got %d", len(DefaultActivities), len(activities))
	}
}

func TestCreateActivity(t *testing.T) {
	store := memory.NewStore()
	svc := NewCatalogService(store.Activities(), nil, nil)
	ctx := context.Background()

	activity, err := svc.Create(ctx, "Pottery Club", "Wheel throwing and glazing", "Mondays, 3:30 PM - 5:00 PM", 8)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if activity.ID == 0 {
		t.Error("expected activity to be assigned an id")
	}

	if _, err := svc.Create(ctx, "Pottery Club", "Duplicate", "Tuesdays", 10); !errors.Is(err, domain.ErrDuplicateActivity) {
		t.Errorf("expected ErrDuplicateActivity, got %v", err)
	}
}

func TestCreateActivityValidation(t *testing.T) {
	store := memory.NewStore()
	svc := NewCatalogService(store.Activities(), nil, nil)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "", "No name", "Mondays", 10); err == nil {
		t.Error("expected error for empty name")
	}
	if _, err := svc.Create(ctx, "Zero Club", "No seats", "Mondays", 0); err == nil {
		t.Error("expected error for non-positive capacity")
	}
}

func TestGetByIDCachesMetadata(t *testing.T) {
	store := memory.NewStore()
	svc := NewCatalogService(store.Activities(), nil, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, "Chess Club", "Learn strategies", "Fridays", 12)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	first, err := svc.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	second, err := svc.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("cached GetByID failed: %v", err)
	}
	if first.Name != second.Name || first.MaxParticipants != second.MaxParticipants {
		t.Error("cached lookup returned different metadata")
	}

	if _, err := svc.GetByID(ctx, 9999); !errors.Is(err, domain.ErrActivityNotFound) {
		t.Errorf("expected ErrActivityNotFound, got %v", err)
	}
}

func TestListReflectsRegistrations(t *testing.T) {
	store := memory.NewStore()
	svc := NewCatalogService(store.Activities(), nil, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, "Chess Club", "Learn strategies", "Fridays", 12)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	reg := &domain.Registration{UserID: 1, ActivityID: created.ID}
	if err := store.Registrations().Create(ctx, reg); err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	activities, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(activities) != 1 {
		t.Fatalf("expected 1 activity, got %d", len(activities))
	}
	if activities[0].CurrentParticipants != 1 {
		t.Errorf("expected 1 participant, got %d", activities[0].CurrentParticipants)
	}
}

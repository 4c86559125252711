package store

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ayusman/touchsurface/internal/config"
)

// newTestStore creates a new Store backed by a file in a temp dir.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func deskProfile() *Profile {
	return &Profile{
		ID:              "profile-1",
		Name:            "desk",
		Threshold:       12,
		MinContourArea:  25,
		MinEllipseArea:  4,
		MaxEllipseArea:  180,
		MaxAxisRatio:    3,
		MatchDistanceSq: 144,
	}
}

var ignoreTimes = cmpopts.IgnoreFields(Profile{}, "CreatedAt", "UpdatedAt")

func TestProfileRepository_Create(t *testing.T) {
	s := newTestStore(t)
	repo := s.Profiles()

	profile := deskProfile()
	if err := repo.Create(profile); err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}

	// Verify CreatedAt and UpdatedAt are set
	if profile.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set after create")
	}
	if profile.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be set after create")
	}

	retrieved, err := repo.GetByID("profile-1")
	if err != nil {
		t.Fatalf("failed to get profile by ID: %v", err)
	}
	if diff := cmp.Diff(profile, retrieved, ignoreTimes); diff != "" {
		t.Errorf("GetByID() mismatch (-want +got):\n%s", diff)
	}

	byName, err := repo.GetByName("desk")
	if err != nil {
		t.Fatalf("failed to get profile by name: %v", err)
	}
	if byName.ID != profile.ID {
		t.Errorf("GetByName returned wrong profile: got ID %q, want %q", byName.ID, profile.ID)
	}
}

func TestProfileRepository_Create_DuplicateName(t *testing.T) {
	s := newTestStore(t)
	repo := s.Profiles()

	if err := repo.Create(deskProfile()); err != nil {
		t.Fatalf("failed to create first profile: %v", err)
	}

	dup := deskProfile()
	dup.ID = "profile-2"
	if err := repo.Create(dup); err == nil {
		t.Error("creating profile with duplicate name should fail")
	}
}

func TestProfileRepository_Create_InvertedAreaBounds(t *testing.T) {
	s := newTestStore(t)

	p := deskProfile()
	p.MinEllipseArea = 500
	if err := s.Profiles().Create(p); err == nil {
		t.Error("creating profile with min ellipse area above max should fail")
	}
}

func TestProfileRepository_List(t *testing.T) {
	s := newTestStore(t)
	repo := s.Profiles()

	for i, name := range []string{"window", "desk", "projector"} {
		p := deskProfile()
		p.ID = "profile-" + string(rune('a'+i))
		p.Name = name
		if err := repo.Create(p); err != nil {
			t.Fatalf("failed to create profile %q: %v", name, err)
		}
	}

	list, err := repo.List()
	if err != nil {
		t.Fatalf("failed to list profiles: %v", err)
	}

	names := make([]string, len(list))
	for i, p := range list {
		names[i] = p.Name
	}
	if diff := cmp.Diff([]string{"desk", "projector", "window"}, names); diff != "" {
		t.Errorf("List() names mismatch (-want +got):\n%s", diff)
	}
}

func TestProfileRepository_List_Empty(t *testing.T) {
	s := newTestStore(t)

	list, err := s.Profiles().List()
	if err != nil {
		t.Fatalf("failed to list profiles: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected empty list, got %d profiles", len(list))
	}
}

func TestProfileRepository_Update(t *testing.T) {
	s := newTestStore(t)
	repo := s.Profiles()

	profile := deskProfile()
	if err := repo.Create(profile); err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}
	originalUpdatedAt := profile.UpdatedAt

	// Wait a bit to ensure UpdatedAt changes
	time.Sleep(10 * time.Millisecond)

	profile.Name = "desk_dim"
	profile.Threshold = 9
	profile.MatchDistanceSq = 64
	if err := repo.Update(profile); err != nil {
		t.Fatalf("failed to update profile: %v", err)
	}

	retrieved, err := repo.GetByID("profile-1")
	if err != nil {
		t.Fatalf("failed to get profile after update: %v", err)
	}
	if diff := cmp.Diff(profile, retrieved, ignoreTimes); diff != "" {
		t.Errorf("after Update mismatch (-want +got):\n%s", diff)
	}
	if !retrieved.UpdatedAt.After(originalUpdatedAt) {
		t.Error("UpdatedAt should be updated after Update")
	}
}

func TestProfileRepository_NotFound(t *testing.T) {
	s := newTestStore(t)
	repo := s.Profiles()

	tests := []struct {
		name string
		op   func() error
	}{
		{name: "get by id", op: func() error { _, err := repo.GetByID("missing"); return err }},
		{name: "get by name", op: func() error { _, err := repo.GetByName("missing"); return err }},
		{name: "update", op: func() error { p := deskProfile(); p.ID = "missing"; return repo.Update(p) }},
		{name: "delete", op: func() error { return repo.Delete("missing") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.op(); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got: %v", err)
			}
		})
	}
}

func TestProfileRepository_Delete(t *testing.T) {
	s := newTestStore(t)
	repo := s.Profiles()

	if err := repo.Create(deskProfile()); err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}
	if err := repo.Delete("profile-1"); err != nil {
		t.Fatalf("failed to delete profile: %v", err)
	}
	if _, err := repo.GetByID("profile-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got: %v", err)
	}
}

func TestProfile_ApplyTo(t *testing.T) {
	cfg := config.Default()
	deskProfile().ApplyTo(&cfg)

	if got := cfg.PreprocessParams().Threshold; got != 12 {
		t.Errorf("Threshold = %g, want 12", got)
	}
	if cfg.Detector.MaxEllipseArea != 180 || cfg.Detector.MaxAxisRatio != 3 {
		t.Errorf("Detector = %+v, want profile filters", cfg.Detector)
	}
	if cfg.Tracker.MatchDistanceSq != 144 {
		t.Errorf("MatchDistanceSq = %d, want 144", cfg.Tracker.MatchDistanceSq)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("config should remain valid: %v", err)
	}
}

func TestProfileFromConfig(t *testing.T) {
	cfg := config.Default()
	threshold := float32(15)
	cfg.Preprocess.Threshold = &threshold
	p := ProfileFromConfig("id-1", "default", cfg)

	roundTrip := config.Default()
	other := float32(1)
	roundTrip.Preprocess.Threshold = &other
	roundTrip.Tracker.MatchDistanceSq = 1
	p.ApplyTo(&roundTrip)

	if diff := cmp.Diff(cfg, roundTrip); diff != "" {
		t.Errorf("ApplyTo(ProfileFromConfig()) mismatch (-want +got):\n%s", diff)
	}
}

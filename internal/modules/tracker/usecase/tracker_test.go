package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"witar/internal/modules/tracker/domain"
	"witar/internal/modules/tracker/dto"
	trackerin "witar/internal/modules/tracker/port/in"
	trackerout "witar/internal/modules/tracker/port/out"
	"witar/internal/modules/tracker/service"
	"witar/internal/modules/tracker/usecase"
	apperrors "witar/internal/platform/errors"
)

func at(hour, min, sec int) time.Time {
	return time.Date(2026, 3, 2, hour, min, sec, 0, time.UTC)
}

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type memStore struct {
	mu      sync.Mutex
	seq     int
	entries []*domain.TimeEntry
}

func (s *memStore) CreateActiveEntry(_ context.Context, userID, companyID string, entryTime time.Time, loc *domain.Coordinates) (domain.TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	entry := domain.TimeEntry{
		ID: fmt.Sprintf("ent-%d", s.seq), UserID: userID, CompanyID: companyID,
		Type: domain.EntryClockIn, EntryTime: entryTime, ClockInTime: entryTime,
		Status: domain.EntryActive, Location: loc,
	}
	s.entries = append(s.entries, &entry)
	return entry, nil
}

func (s *memStore) FindActiveEntry(ctx context.Context, userID, companyID string) (domain.TimeEntry, error) {
	actives, _ := s.ActiveEntries(ctx, userID, companyID)
	if len(actives) == 0 {
		return domain.TimeEntry{}, apperrors.ErrNoActiveEntry
	}
	return actives[0], nil
}

func (s *memStore) ActiveEntries(_ context.Context, userID, companyID string) ([]domain.TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var actives []domain.TimeEntry
	for _, e := range s.entries {
		if e.UserID == userID && e.CompanyID == companyID && e.Status == domain.EntryActive {
			actives = append(actives, *e)
		}
	}
	sort.Slice(actives, func(i, j int) bool { return actives[i].ClockInTime.Before(actives[j].ClockInTime) })
	return actives, nil
}

func (s *memStore) InsertEntry(_ context.Context, userID, companyID string, kind domain.EntryType, entryTime time.Time) (domain.TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	entry := domain.TimeEntry{
		ID: fmt.Sprintf("ent-%d", s.seq), UserID: userID, CompanyID: companyID,
		Type: kind, EntryTime: entryTime, Status: domain.EntryCompleted,
	}
	s.entries = append(s.entries, &entry)
	return entry, nil
}

func (s *memStore) CompleteEntry(_ context.Context, entryID string, clockOutTime time.Time, durationMs int64) (domain.TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ID == entryID && e.Status == domain.EntryActive {
			e.Type = domain.EntryClockOut
			e.Status = domain.EntryCompleted
			e.ClockOutTime = clockOutTime
			e.DurationMs = durationMs
			return *e, nil
		}
	}
	return domain.TimeEntry{}, apperrors.ErrNotFound
}

func (s *memStore) EntriesInRange(_ context.Context, userID, companyID string, from, to time.Time) ([]domain.TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var entries []domain.TimeEntry
	for _, e := range s.entries {
		if e.UserID == userID && e.CompanyID == companyID && !e.EntryTime.Before(from) && e.EntryTime.Before(to) {
			entries = append(entries, *e)
		}
	}
	return entries, nil
}

type memSnapshots struct {
	mu   sync.Mutex
	snap *domain.Snapshot
}

func (s *memSnapshots) Save(_ context.Context, snap domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = &snap
	return nil
}

func (s *memSnapshots) Load(_ context.Context) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return domain.Snapshot{}, apperrors.ErrNoSnapshot
	}
	return *s.snap, nil
}

func (s *memSnapshots) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = nil
	return nil
}

type fakeLocator struct {
	loc        *domain.Coordinates
	err        error
	permission trackerout.Permission
}

func (l *fakeLocator) Position(_ context.Context) (domain.Coordinates, error) {
	if l.err != nil {
		return domain.Coordinates{}, l.err
	}
	if l.loc == nil {
		return domain.Coordinates{}, errors.New("no fix")
	}
	return *l.loc, nil
}

func (l *fakeLocator) Permission(_ context.Context) trackerout.Permission {
	return l.permission
}

func newUsecase(t *testing.T, store *memStore, locator trackerout.Locator, identity usecase.Identity) trackerin.Usecase {
	t.Helper()
	clk := fixedClock{now: at(9, 0, 0)}
	svc := service.NewTrackerService(clk, store, &memSnapshots{}, testLogger(), service.Options{
		UserID:    identity.UserID,
		CompanyID: identity.CompanyID,
	})
	return usecase.NewInteractor(svc, store, locator, clk, testLogger(), identity, time.Second)
}

func TestClockInWithoutLocationPermission(t *testing.T) {
	t.Parallel()
	store := &memStore{}
	locator := &fakeLocator{err: errors.New("permission denied"), permission: trackerout.PermissionPrompt}
	uc := newUsecase(t, store, locator, usecase.Identity{UserID: "user-1", CompanyID: "co-1"})

	out, err := uc.ClockIn(context.Background(), dto.ClockInInput{})
	if err != nil {
		t.Fatalf("clock in must succeed without a location: %v", err)
	}
	if !out.Active || out.Location != nil {
		t.Fatalf("expected active session without location badge: %+v", out)
	}
	entry, err := store.FindActiveEntry(context.Background(), "user-1", "co-1")
	if err != nil {
		t.Fatalf("find entry: %v", err)
	}
	if entry.Location != nil {
		t.Fatalf("entry must carry null location fields")
	}
}

func TestClockInUsesCallerProvidedLocation(t *testing.T) {
	t.Parallel()
	store := &memStore{}
	locator := &fakeLocator{err: errors.New("should not be called"), permission: trackerout.PermissionGranted}
	uc := newUsecase(t, store, locator, usecase.Identity{UserID: "user-1", CompanyID: "co-1"})

	out, err := uc.ClockIn(context.Background(), dto.ClockInInput{Location: &dto.Location{Lat: 40.41, Lng: -3.70}})
	if err != nil {
		t.Fatalf("clock in: %v", err)
	}
	if out.Location == nil || out.Location.Lat != 40.41 {
		t.Fatalf("caller-provided location lost: %+v", out.Location)
	}
}

func TestOperationsRequireIdentity(t *testing.T) {
	t.Parallel()
	store := &memStore{}
	locator := &fakeLocator{permission: trackerout.PermissionGranted}

	anonymous := newUsecase(t, store, locator, usecase.Identity{})
	if _, err := anonymous.ClockIn(context.Background(), dto.ClockInInput{}); !errors.Is(err, apperrors.ErrNotAuthenticated) {
		t.Fatalf("expected not authenticated, got %v", err)
	}
	if _, err := anonymous.Sync(context.Background()); !errors.Is(err, apperrors.ErrNotAuthenticated) {
		t.Fatalf("expected not authenticated, got %v", err)
	}
	if _, err := anonymous.Pause(context.Background()); !errors.Is(err, apperrors.ErrNotAuthenticated) {
		t.Fatalf("expected not authenticated on pause, got %v", err)
	}
	if _, err := anonymous.Resume(context.Background()); !errors.Is(err, apperrors.ErrNotAuthenticated) {
		t.Fatalf("expected not authenticated on resume, got %v", err)
	}

	noCompany := newUsecase(t, store, locator, usecase.Identity{UserID: "user-1"})
	if _, err := noCompany.ClockIn(context.Background(), dto.ClockInInput{}); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input without company, got %v", err)
	}
}

func TestCurrentLocationReportsPermissionState(t *testing.T) {
	t.Parallel()
	store := &memStore{}
	locator := &fakeLocator{err: errors.New("timeout"), permission: trackerout.PermissionPrompt}
	uc := newUsecase(t, store, locator, usecase.Identity{UserID: "user-1", CompanyID: "co-1"})

	out, err := uc.CurrentLocation(context.Background())
	if err != nil {
		t.Fatalf("current location: %v", err)
	}
	if out.Permission != string(trackerout.PermissionPrompt) {
		t.Fatalf("expected prompt permission, got %s", out.Permission)
	}
	if out.Location != nil {
		t.Fatalf("failed fix must yield no location")
	}
}

func TestEntriesListsTheRequestedDay(t *testing.T) {
	t.Parallel()
	store := &memStore{}
	locator := &fakeLocator{permission: trackerout.PermissionDenied}
	uc := newUsecase(t, store, locator, usecase.Identity{UserID: "user-1", CompanyID: "co-1"})

	if _, err := store.CreateActiveEntry(context.Background(), "user-1", "co-1", at(9, 0, 0), nil); err != nil {
		t.Fatalf("seed entry: %v", err)
	}
	if _, err := store.InsertEntry(context.Background(), "user-1", "co-1", domain.EntryBreakStart, at(12, 0, 0)); err != nil {
		t.Fatalf("seed marker: %v", err)
	}
	if _, err := store.InsertEntry(context.Background(), "user-1", "co-1", domain.EntryBreakStart, at(12, 0, 0).AddDate(0, 0, 1)); err != nil {
		t.Fatalf("seed next-day marker: %v", err)
	}

	entries, err := uc.Entries(context.Background(), dto.EntriesInput{Day: at(0, 0, 0)})
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries for the day, got %d", len(entries))
	}

	// A zero day means "today" as told by the tracker's clock, not the host.
	defaulted, err := uc.Entries(context.Background(), dto.EntriesInput{})
	if err != nil {
		t.Fatalf("entries with default day: %v", err)
	}
	if len(defaulted) != 2 {
		t.Fatalf("expected the clock's day by default, got %d entries", len(defaulted))
	}
}

func TestStopScenarioSurfacesDuration(t *testing.T) {
	t.Parallel()
	store := &memStore{}
	locator := &fakeLocator{permission: trackerout.PermissionDenied}
	uc := newUsecase(t, store, locator, usecase.Identity{UserID: "user-1", CompanyID: "co-1"})

	if _, err := uc.ClockIn(context.Background(), dto.ClockInInput{}); err != nil {
		t.Fatalf("clock in: %v", err)
	}
	out, err := uc.ClockOut(context.Background())
	if err != nil {
		t.Fatalf("clock out: %v", err)
	}
	if out.EntryID == "" {
		t.Fatalf("clock out must report the completed entry")
	}
	status, err := uc.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Active {
		t.Fatalf("expected clocked out status")
	}
}

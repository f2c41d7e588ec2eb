package service_test

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
	"witar/internal/modules/tracker/service"
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

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type memEntryStore struct {
	mu      sync.Mutex
	entries map[string]*domain.TimeEntry
	seq     int

	createCalls   int
	completeCalls int

	failCreate      error
	failComplete    error
	failInsert      error
	failQuery       error
	onActiveEntries func()
}

func newMemEntryStore() *memEntryStore {
	return &memEntryStore{entries: map[string]*domain.TimeEntry{}}
}

func (s *memEntryStore) CreateActiveEntry(_ context.Context, userID, companyID string, entryTime time.Time, loc *domain.Coordinates) (domain.TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	if s.failCreate != nil {
		return domain.TimeEntry{}, s.failCreate
	}
	s.seq++
	entry := domain.TimeEntry{
		ID:          fmt.Sprintf("ent-%d", s.seq),
		UserID:      userID,
		CompanyID:   companyID,
		Type:        domain.EntryClockIn,
		EntryTime:   entryTime,
		ClockInTime: entryTime,
		Status:      domain.EntryActive,
		Location:    loc,
	}
	s.entries[entry.ID] = &entry
	return entry, nil
}

func (s *memEntryStore) FindActiveEntry(ctx context.Context, userID, companyID string) (domain.TimeEntry, error) {
	actives, err := s.ActiveEntries(ctx, userID, companyID)
	if err != nil {
		return domain.TimeEntry{}, err
	}
	if len(actives) == 0 {
		return domain.TimeEntry{}, apperrors.ErrNoActiveEntry
	}
	return actives[0], nil
}

func (s *memEntryStore) ActiveEntries(_ context.Context, userID, companyID string) ([]domain.TimeEntry, error) {
	if s.onActiveEntries != nil {
		s.onActiveEntries()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failQuery != nil {
		return nil, s.failQuery
	}
	var actives []domain.TimeEntry
	for _, e := range s.entries {
		if e.UserID == userID && e.CompanyID == companyID && e.Status == domain.EntryActive {
			actives = append(actives, *e)
		}
	}
	sort.Slice(actives, func(i, j int) bool { return actives[i].ClockInTime.Before(actives[j].ClockInTime) })
	return actives, nil
}

func (s *memEntryStore) InsertEntry(_ context.Context, userID, companyID string, kind domain.EntryType, entryTime time.Time) (domain.TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInsert != nil {
		return domain.TimeEntry{}, s.failInsert
	}
	s.seq++
	entry := domain.TimeEntry{
		ID:        fmt.Sprintf("ent-%d", s.seq),
		UserID:    userID,
		CompanyID: companyID,
		Type:      kind,
		EntryTime: entryTime,
		Status:    domain.EntryCompleted,
	}
	s.entries[entry.ID] = &entry
	return entry, nil
}

func (s *memEntryStore) CompleteEntry(_ context.Context, entryID string, clockOutTime time.Time, durationMs int64) (domain.TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completeCalls++
	if s.failComplete != nil {
		return domain.TimeEntry{}, s.failComplete
	}
	entry, ok := s.entries[entryID]
	if !ok || entry.Status != domain.EntryActive {
		return domain.TimeEntry{}, apperrors.ErrNotFound
	}
	entry.Type = domain.EntryClockOut
	entry.Status = domain.EntryCompleted
	entry.ClockOutTime = clockOutTime
	entry.DurationMs = durationMs
	return *entry, nil
}

func (s *memEntryStore) EntriesInRange(_ context.Context, userID, companyID string, from, to time.Time) ([]domain.TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var entries []domain.TimeEntry
	for _, e := range s.entries {
		if e.UserID == userID && e.CompanyID == companyID && !e.EntryTime.Before(from) && e.EntryTime.Before(to) {
			entries = append(entries, *e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].EntryTime.Before(entries[j].EntryTime) })
	return entries, nil
}

func (s *memEntryStore) activeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if e.Status == domain.EntryActive {
			n++
		}
	}
	return n
}

type memSnapshotStore struct {
	mu    sync.Mutex
	snap  *domain.Snapshot
	saves int
}

func (s *memSnapshotStore) Save(_ context.Context, snap domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = &snap
	s.saves++
	return nil
}

func (s *memSnapshotStore) Load(_ context.Context) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return domain.Snapshot{}, apperrors.ErrNoSnapshot
	}
	return *s.snap, nil
}

func (s *memSnapshotStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = nil
	return nil
}

func newService(clk *fakeClock, entries *memEntryStore, snapshots *memSnapshotStore) *service.TrackerService {
	return service.NewTrackerService(clk, entries, snapshots, testLogger(), service.Options{
		UserID:    "user-1",
		CompanyID: "co-1",
	})
}

func TestClockInCreatesRemoteEntryThenAdvancesLocalState(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{now: at(9, 0, 0)}
	entries := newMemEntryStore()
	snapshots := &memSnapshotStore{}
	svc := newService(clk, entries, snapshots)

	loc := &domain.Coordinates{Lat: 41.39, Lng: 2.17}
	session, err := svc.ClockIn(context.Background(), loc)
	if err != nil {
		t.Fatalf("clock in: %v", err)
	}
	if session.Status != domain.StatusActive || !session.StartedAt.Equal(at(9, 0, 0)) {
		t.Fatalf("unexpected session after clock in: %+v", session)
	}
	if entries.activeCount() != 1 {
		t.Fatalf("expected one active entry, got %d", entries.activeCount())
	}
	if snapshots.snap == nil || !snapshots.snap.Active {
		t.Fatalf("clock in must persist an active snapshot")
	}
}

func TestClockInDoesNotAdvanceWhenRemoteWriteFails(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{now: at(9, 0, 0)}
	entries := newMemEntryStore()
	entries.failCreate = errors.New("backend down")
	snapshots := &memSnapshotStore{}
	svc := newService(clk, entries, snapshots)

	if _, err := svc.ClockIn(context.Background(), nil); err == nil {
		t.Fatalf("expected error when the authoritative write fails")
	}
	if svc.Session().Status != domain.StatusOut {
		t.Fatalf("local state advanced despite failed remote write")
	}
	if snapshots.snap != nil {
		t.Fatalf("no snapshot must be written for a failed clock in")
	}
}

func TestClockInAdoptsActiveEntryFromAnotherDevice(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{now: at(9, 0, 0)}
	entries := newMemEntryStore()
	if _, err := entries.CreateActiveEntry(context.Background(), "user-1", "co-1", at(8, 30, 0), nil); err != nil {
		t.Fatalf("seed entry: %v", err)
	}
	entries.createCalls = 0
	snapshots := &memSnapshotStore{}
	svc := newService(clk, entries, snapshots)

	session, err := svc.ClockIn(context.Background(), nil)
	if err != nil {
		t.Fatalf("clock in: %v", err)
	}
	if entries.createCalls != 0 {
		t.Fatalf("adoption must not create a duplicate entry")
	}
	if !session.StartedAt.Equal(at(8, 30, 0)) {
		t.Fatalf("expected remote clock-in time, got %v", session.StartedAt)
	}
	if want := int64(30 * 60 * 1000); session.ElapsedMs != want {
		t.Fatalf("expected %dms elapsed, got %dms", want, session.ElapsedMs)
	}
}

func TestClockOutIsIdempotent(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{now: at(9, 0, 0)}
	entries := newMemEntryStore()
	snapshots := &memSnapshotStore{}
	svc := newService(clk, entries, snapshots)

	if _, err := svc.ClockIn(context.Background(), nil); err != nil {
		t.Fatalf("clock in: %v", err)
	}
	clk.Set(at(17, 0, 0))

	entryID, durationMs, err := svc.ClockOut(context.Background())
	if err != nil {
		t.Fatalf("clock out: %v", err)
	}
	if entryID == "" || durationMs != int64(8*60*60*1000) {
		t.Fatalf("unexpected clock out result: %s %d", entryID, durationMs)
	}
	if snapshots.snap != nil {
		t.Fatalf("clock out must clear the snapshot")
	}

	if _, _, err := svc.ClockOut(context.Background()); !errors.Is(err, apperrors.ErrPrecondition) {
		t.Fatalf("second clock out must fail with precondition, got %v", err)
	}
	if entries.completeCalls != 1 {
		t.Fatalf("expected exactly one complete call, got %d", entries.completeCalls)
	}
}

func TestFailedClockOutKeepsSessionActive(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{now: at(9, 0, 0)}
	entries := newMemEntryStore()
	snapshots := &memSnapshotStore{}
	svc := newService(clk, entries, snapshots)

	if _, err := svc.ClockIn(context.Background(), nil); err != nil {
		t.Fatalf("clock in: %v", err)
	}
	entries.failComplete = errors.New("backend down")
	clk.Set(at(17, 0, 0))

	if _, _, err := svc.ClockOut(context.Background()); err == nil {
		t.Fatalf("expected clock out to surface the store error")
	}
	if svc.Session().Status != domain.StatusActive {
		t.Fatalf("session must stay active after a failed clock out")
	}
	if snapshots.snap == nil {
		t.Fatalf("snapshot must survive a failed clock out")
	}
}

func TestPauseAppliesEvenWhenBreakMarkerFails(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{now: at(9, 0, 0)}
	entries := newMemEntryStore()
	snapshots := &memSnapshotStore{}
	svc := newService(clk, entries, snapshots)

	if _, err := svc.ClockIn(context.Background(), nil); err != nil {
		t.Fatalf("clock in: %v", err)
	}
	entries.failInsert = errors.New("backend down")
	clk.Set(at(9, 30, 0))

	session, err := svc.Pause(context.Background())
	if err != nil {
		t.Fatalf("pause: %v", err)
	}
	if session.Status != domain.StatusPaused {
		t.Fatalf("expected paused, got %s", session.Status)
	}
}

func TestRestoreAcrossProcessRestart(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{now: at(9, 0, 0)}
	entries := newMemEntryStore()
	snapshots := &memSnapshotStore{}
	svc := newService(clk, entries, snapshots)

	if _, err := svc.ClockIn(context.Background(), nil); err != nil {
		t.Fatalf("clock in: %v", err)
	}
	clk.Set(at(9, 45, 0))
	before := svc.Tick(context.Background())

	// Fresh in-memory state, same durable storage.
	restarted := newService(clk, entries, snapshots)
	if err := restarted.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	after := restarted.Session()
	if after.Status != domain.StatusActive {
		t.Fatalf("expected restored active session, got %s", after.Status)
	}
	if !after.StartedAt.Equal(before.StartedAt) {
		t.Fatalf("restore lost start time: %v vs %v", after.StartedAt, before.StartedAt)
	}
	if after.ElapsedMs < before.ElapsedMs {
		t.Fatalf("restored elapsed went backwards: %d < %d", after.ElapsedMs, before.ElapsedMs)
	}
}

func TestTickPersistsAtBoundedCadence(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{now: at(9, 0, 0)}
	entries := newMemEntryStore()
	snapshots := &memSnapshotStore{}
	svc := newService(clk, entries, snapshots)

	if _, err := svc.ClockIn(context.Background(), nil); err != nil {
		t.Fatalf("clock in: %v", err)
	}
	saves := snapshots.saves

	// Sub-interval ticks must not write.
	for sec := 1; sec < 10; sec++ {
		clk.Set(at(9, 0, sec))
		svc.Tick(context.Background())
	}
	if snapshots.saves != saves {
		t.Fatalf("tick persisted before the cadence elapsed")
	}

	clk.Set(at(9, 0, 11))
	svc.Tick(context.Background())
	if snapshots.saves != saves+1 {
		t.Fatalf("tick did not persist after the cadence elapsed")
	}
}

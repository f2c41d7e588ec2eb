package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"witar/internal/modules/tracker/domain"
	trackerout "witar/internal/modules/tracker/port/out"
	"witar/internal/platform/clock"
	apperrors "witar/internal/platform/errors"
)

// TrackerService owns the lifecycle of the currently clocked-in session:
// transitions, the elapsed-time tick, snapshot persistence, and
// reconciliation against the entry store. User-initiated transitions hold
// the lock across their store round-trip and always take precedence;
// reconciliation releases the lock while querying and re-validates the
// session revision before applying its result.
type TrackerService struct {
	mu      sync.Mutex
	session domain.Session
	online  bool

	clock     clock.Clock
	entries   trackerout.EntryStore
	snapshots trackerout.SnapshotStore
	log       *logrus.Entry

	userID    string
	companyID string

	driftTolerance  time.Duration
	persistInterval time.Duration
	storeTimeout    time.Duration
	lastPersist     time.Time
}

type Options struct {
	UserID          string
	CompanyID       string
	DriftTolerance  time.Duration
	PersistInterval time.Duration
	StoreTimeout    time.Duration
}

func NewTrackerService(clk clock.Clock, entries trackerout.EntryStore, snapshots trackerout.SnapshotStore, log *logrus.Entry, opts Options) *TrackerService {
	if opts.DriftTolerance <= 0 {
		opts.DriftTolerance = 5 * time.Minute
	}
	if opts.PersistInterval <= 0 {
		opts.PersistInterval = 10 * time.Second
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 10 * time.Second
	}
	return &TrackerService{
		session:         domain.Session{Status: domain.StatusOut},
		online:          true,
		clock:           clk,
		entries:         entries,
		snapshots:       snapshots,
		log:             log,
		userID:          opts.UserID,
		companyID:       opts.CompanyID,
		driftTolerance:  opts.DriftTolerance,
		persistInterval: opts.PersistInterval,
		storeTimeout:    opts.StoreTimeout,
	}
}

// Restore rebuilds the in-memory session from local durable storage before
// any network call, so a reload shows "still clocked in" immediately. A
// missing or corrupt snapshot means not clocked in.
func (s *TrackerService) Restore(ctx context.Context) error {
	snap, err := s.snapshots.Load(ctx)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNoSnapshot) {
			s.log.WithError(err).Warn("load session snapshot")
		}
		return nil
	}
	session, err := domain.FromSnapshot(snap)
	if err != nil {
		s.log.WithError(err).Warn("discarding unusable session snapshot")
		return nil
	}
	s.mu.Lock()
	s.session = session
	s.session.Tick(s.clock.Now())
	s.mu.Unlock()
	return nil
}

// ClockIn creates the remote active entry and only then advances local
// state, so a failed authoritative write never leaves the two diverged.
// If another device already holds an active entry, that entry is adopted
// instead of creating a duplicate.
func (s *TrackerService) ClockIn(ctx context.Context, loc *domain.Coordinates) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.Status != domain.StatusOut {
		return s.session, apperrors.ErrPrecondition
	}

	now := s.clock.Now()

	cctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	existing, err := s.entries.FindActiveEntry(cctx, s.userID, s.companyID)
	switch {
	case err == nil:
		if startErr := s.session.Start(existing.ClockInTime, s.companyID, existing.ID, existing.Location); startErr != nil {
			return s.session, startErr
		}
		s.session.Tick(now)
		s.log.WithField("entry_id", existing.ID).Info("adopted active entry from another device")
	case errors.Is(err, apperrors.ErrNoActiveEntry):
		entry, createErr := s.entries.CreateActiveEntry(cctx, s.userID, s.companyID, now, loc)
		if createErr != nil {
			return s.session, fmt.Errorf("create time entry: %w", createErr)
		}
		if startErr := s.session.Start(now, s.companyID, entry.ID, loc); startErr != nil {
			return s.session, startErr
		}
	default:
		return s.session, fmt.Errorf("check active entry: %w", err)
	}

	s.session.LastSyncAt = now
	s.persistLocked(ctx, now)
	return s.session, nil
}

// Pause freezes elapsed time. The break_start marker is best-effort: the
// active entry itself is untouched, so a failed marker insert does not
// block the transition.
func (s *TrackerService) Pause(ctx context.Context) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if err := s.session.Pause(now); err != nil {
		return s.session, err
	}
	s.insertMarker(ctx, domain.EntryBreakStart, now)
	s.persistLocked(ctx, now)
	return s.session, nil
}

func (s *TrackerService) Resume(ctx context.Context) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if err := s.session.Resume(now); err != nil {
		return s.session, err
	}
	s.insertMarker(ctx, domain.EntryBreakEnd, now)
	s.persistLocked(ctx, now)
	return s.session, nil
}

// ClockOut completes the remote entry first and clears local state only on
// success. On failure the session stays active; the next reconciliation
// cycle restores a missing remote entry and the user can retry.
func (s *TrackerService) ClockOut(ctx context.Context) (entryID string, durationMs int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.Status == domain.StatusOut {
		return "", 0, apperrors.ErrPrecondition
	}

	now := s.clock.Now()
	entryID = s.session.EntryID
	durationMs = now.Sub(s.session.StartedAt).Milliseconds()
	if durationMs < 0 {
		durationMs = 0
	}

	cctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if _, err := s.entries.CompleteEntry(cctx, entryID, now, durationMs); err != nil {
		return "", 0, fmt.Errorf("complete time entry: %w", err)
	}

	if _, _, err := s.session.Stop(now); err != nil {
		return "", 0, err
	}
	if err := s.snapshots.Clear(ctx); err != nil {
		s.log.WithError(err).Warn("clear session snapshot")
	}
	return entryID, durationMs, nil
}

// Tick recomputes elapsed time and persists the snapshot at a bounded
// cadence while the session is active.
func (s *TrackerService) Tick(ctx context.Context) domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	s.session.Tick(now)
	if s.session.IsActive() && now.Sub(s.lastPersist) >= s.persistInterval {
		s.persistLocked(ctx, now)
	}
	return s.session
}

// Session returns a copy of the current session for read-only consumers.
func (s *TrackerService) Session() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

func (s *TrackerService) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// SetOnline records connectivity transitions. Coming back online triggers
// an immediate reconciliation, which is best-effort as always.
func (s *TrackerService) SetOnline(ctx context.Context, online bool) {
	s.mu.Lock()
	was := s.online
	s.online = online
	s.mu.Unlock()

	if online && !was {
		s.log.Info("connectivity restored")
		if _, err := s.Reconcile(ctx); err != nil {
			s.log.WithError(err).Warn("reconcile after reconnect")
		}
	}
}

// insertMarker records a break boundary row. Callers hold the lock.
func (s *TrackerService) insertMarker(ctx context.Context, kind domain.EntryType, now time.Time) {
	cctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if _, err := s.entries.InsertEntry(cctx, s.userID, s.companyID, kind, now); err != nil {
		s.log.WithError(err).WithField("kind", kind).Warn("insert break marker")
	}
}

// persistLocked serializes the session to durable storage. Persistence
// failures are logged, not surfaced: the in-memory session stays correct
// and the next write will retry.
func (s *TrackerService) persistLocked(ctx context.Context, now time.Time) {
	if err := s.snapshots.Save(ctx, s.session.Snapshot()); err != nil {
		s.log.WithError(err).Warn("persist session snapshot")
		return
	}
	s.lastPersist = now
}

package domain

import (
	"time"

	apperrors "witar/internal/platform/errors"
)

const SnapshotVersion = 1

type Status string

const (
	StatusOut    Status = "out"
	StatusActive Status = "active"
	StatusPaused Status = "paused"
)

// Session is the locally tracked work session. It is mutated only through
// the four transition methods, Tick, and reconciliation corrections; every
// user transition bumps Revision so an in-flight reconciliation whose result
// would contradict a newer state can be discarded.
type Session struct {
	Status         Status
	EntryID        string
	CompanyID      string
	StartedAt      time.Time
	ElapsedMs      int64
	PauseStartedAt time.Time
	TotalPausedMs  int64
	Location       *Coordinates
	LastSyncAt     time.Time
	Revision       uint64
}

func (s Session) IsActive() bool { return s.Status != StatusOut }
func (s Session) IsPaused() bool { return s.Status == StatusPaused }

// Start moves OUT -> ACTIVE once the remote active entry has been created.
func (s *Session) Start(now time.Time, companyID, entryID string, loc *Coordinates) error {
	if s.Status != StatusOut {
		return apperrors.ErrPrecondition
	}
	s.Status = StatusActive
	s.EntryID = entryID
	s.CompanyID = companyID
	s.StartedAt = now
	s.ElapsedMs = 0
	s.PauseStartedAt = time.Time{}
	s.TotalPausedMs = 0
	s.Location = loc
	s.Revision++
	return nil
}

// Pause moves ACTIVE -> PAUSED. Elapsed time freezes at its last value.
func (s *Session) Pause(now time.Time) error {
	if s.Status != StatusActive {
		return apperrors.ErrPrecondition
	}
	s.Tick(now)
	s.Status = StatusPaused
	s.PauseStartedAt = now
	s.Revision++
	return nil
}

// Resume moves PAUSED -> ACTIVE and folds the pause interval into
// TotalPausedMs.
func (s *Session) Resume(now time.Time) error {
	if s.Status != StatusPaused {
		return apperrors.ErrPrecondition
	}
	paused := now.Sub(s.PauseStartedAt)
	if paused > 0 {
		s.TotalPausedMs += paused.Milliseconds()
	}
	s.Status = StatusActive
	s.PauseStartedAt = time.Time{}
	s.Revision++
	s.Tick(now)
	return nil
}

// Stop moves ACTIVE/PAUSED -> OUT and reports the entry to complete along
// with the full wall-clock duration since clock-in.
func (s *Session) Stop(now time.Time) (entryID string, durationMs int64, err error) {
	if s.Status == StatusOut {
		return "", 0, apperrors.ErrPrecondition
	}
	if s.Status == StatusPaused {
		paused := now.Sub(s.PauseStartedAt)
		if paused > 0 {
			s.TotalPausedMs += paused.Milliseconds()
		}
	}
	entryID = s.EntryID
	durationMs = now.Sub(s.StartedAt).Milliseconds()
	if durationMs < 0 {
		durationMs = 0
	}
	*s = Session{Status: StatusOut, Revision: s.Revision + 1}
	return entryID, durationMs, nil
}

// Tick recomputes elapsed time as a wall-clock difference rather than an
// accumulator, so missed ticks cannot introduce drift. Paused sessions hold
// their last value.
func (s *Session) Tick(now time.Time) {
	if s.Status != StatusActive {
		return
	}
	elapsed := now.Sub(s.StartedAt).Milliseconds() - s.TotalPausedMs
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > s.ElapsedMs {
		s.ElapsedMs = elapsed
	}
}

// AdoptRemoteStart applies a reconciliation correction: the remote clock-in
// time wins, and elapsed time is recomputed from it.
func (s *Session) AdoptRemoteStart(now, clockInTime time.Time, entryID string) {
	if s.Status == StatusOut {
		return
	}
	s.StartedAt = clockInTime
	s.EntryID = entryID
	if s.Status == StatusActive {
		s.ElapsedMs = 0
		s.Tick(now)
	} else {
		elapsed := s.PauseStartedAt.Sub(s.StartedAt).Milliseconds() - s.TotalPausedMs
		if elapsed < 0 {
			elapsed = 0
		}
		s.ElapsedMs = elapsed
	}
}

// DriftExceeds reports whether local and remote clock-in timestamps diverge
// beyond the tolerance. Small differences are expected network latency and
// must not cause visible timer jumps.
func DriftExceeds(local, remote time.Time, tolerance time.Duration) bool {
	drift := local.Sub(remote)
	if drift < 0 {
		drift = -drift
	}
	return drift > tolerance
}

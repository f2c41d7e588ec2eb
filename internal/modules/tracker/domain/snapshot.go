package domain

import (
	"time"

	apperrors "witar/internal/platform/errors"
)

// Snapshot is the single versioned record persisted to local durable
// storage. One blob instead of scattered keys: a partial write is detected
// by the version/consistency checks and degrades to "not clocked in".
type Snapshot struct {
	Version        int          `json:"version"`
	Active         bool         `json:"active"`
	Paused         bool         `json:"paused"`
	EntryID        string       `json:"entry_id,omitempty"`
	CompanyID      string       `json:"company_id,omitempty"`
	StartedAt      time.Time    `json:"started_at"`
	ElapsedMs      int64        `json:"elapsed_ms"`
	PauseStartedAt *time.Time   `json:"pause_started_at,omitempty"`
	TotalPausedMs  int64        `json:"total_paused_ms"`
	Location       *Coordinates `json:"location,omitempty"`
	LastSyncAt     *time.Time   `json:"last_sync_at,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		Version:       SnapshotVersion,
		Active:        s.IsActive(),
		Paused:        s.IsPaused(),
		EntryID:       s.EntryID,
		CompanyID:     s.CompanyID,
		StartedAt:     s.StartedAt,
		ElapsedMs:     s.ElapsedMs,
		TotalPausedMs: s.TotalPausedMs,
		Location:      s.Location,
	}
	if !s.PauseStartedAt.IsZero() {
		t := s.PauseStartedAt
		snap.PauseStartedAt = &t
	}
	if !s.LastSyncAt.IsZero() {
		t := s.LastSyncAt
		snap.LastSyncAt = &t
	}
	return snap
}

// FromSnapshot reconstructs a session from durable storage. A snapshot that
// claims an active session without a start time is corrupt and rejected.
func FromSnapshot(snap Snapshot) (Session, error) {
	if snap.Version != SnapshotVersion {
		return Session{Status: StatusOut}, apperrors.ErrNoSnapshot
	}
	if !snap.Active {
		return Session{Status: StatusOut}, nil
	}
	if snap.StartedAt.IsZero() {
		return Session{Status: StatusOut}, apperrors.ErrNoSnapshot
	}
	session := Session{
		Status:        StatusActive,
		EntryID:       snap.EntryID,
		CompanyID:     snap.CompanyID,
		StartedAt:     snap.StartedAt,
		ElapsedMs:     snap.ElapsedMs,
		TotalPausedMs: snap.TotalPausedMs,
		Location:      snap.Location,
	}
	if snap.Paused {
		if snap.PauseStartedAt == nil {
			return Session{Status: StatusOut}, apperrors.ErrNoSnapshot
		}
		session.Status = StatusPaused
		session.PauseStartedAt = *snap.PauseStartedAt
	}
	if snap.LastSyncAt != nil {
		session.LastSyncAt = *snap.LastSyncAt
	}
	return session, nil
}

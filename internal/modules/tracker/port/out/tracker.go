package out

import (
	"context"
	"time"

	"witar/internal/modules/tracker/domain"
)

// EntryStore is the authoritative time-entry system of record.
type EntryStore interface {
	// CreateActiveEntry opens a clock_in entry with active status.
	CreateActiveEntry(ctx context.Context, userID, companyID string, entryTime time.Time, loc *domain.Coordinates) (domain.TimeEntry, error)
	// FindActiveEntry returns the active entry with the earliest clock-in
	// time, or apperrors.ErrNoActiveEntry.
	FindActiveEntry(ctx context.Context, userID, companyID string) (domain.TimeEntry, error)
	// ActiveEntries returns all active entries ordered by clock-in time
	// ascending. More than one means a duplicate-creation race happened.
	ActiveEntries(ctx context.Context, userID, companyID string) ([]domain.TimeEntry, error)
	// InsertEntry records a completed marker row (break_start, break_end).
	InsertEntry(ctx context.Context, userID, companyID string, kind domain.EntryType, entryTime time.Time) (domain.TimeEntry, error)
	// CompleteEntry closes an active entry.
	CompleteEntry(ctx context.Context, entryID string, clockOutTime time.Time, durationMs int64) (domain.TimeEntry, error)
	// EntriesInRange lists entries with entry time in [from, to).
	EntriesInRange(ctx context.Context, userID, companyID string, from, to time.Time) ([]domain.TimeEntry, error)
}

// SnapshotStore is local durable storage for the session snapshot.
type SnapshotStore interface {
	Save(ctx context.Context, snap domain.Snapshot) error
	// Load returns apperrors.ErrNoSnapshot when nothing usable is stored.
	Load(ctx context.Context) (domain.Snapshot, error)
	Clear(ctx context.Context) error
}

type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	PermissionPrompt  Permission = "prompt"
	PermissionUnknown Permission = "unknown"
)

// Locator acquires a best-effort device position. Implementations must
// time-box the request; failure is never fatal to a clock-in.
type Locator interface {
	Position(ctx context.Context) (domain.Coordinates, error)
	Permission(ctx context.Context) Permission
}

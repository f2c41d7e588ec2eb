package dto

import "time"

type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// SessionOutput is the read-only view of the tracked session that UI
// layers consume. ElapsedMs is the only time figure they may display.
type SessionOutput struct {
	Active     bool       `json:"active"`
	Paused     bool       `json:"paused"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	ElapsedMs  int64      `json:"elapsed_ms"`
	PausedMs   int64      `json:"paused_ms"`
	Location   *Location  `json:"location,omitempty"`
	Online     bool       `json:"online"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
}

type ClockInInput struct {
	// Location overrides the locator when the caller already has a fix.
	Location *Location
}

type ClockOutOutput struct {
	EntryID    string `json:"entry_id"`
	DurationMs int64  `json:"duration_ms"`
}

type SyncOutput struct {
	Restored  bool      `json:"restored"`
	Corrected bool      `json:"corrected"`
	SyncedAt  time.Time `json:"synced_at"`
}

type LocationOutput struct {
	Location   *Location `json:"location,omitempty"`
	Permission string    `json:"permission"`
}

type EntriesInput struct {
	Day time.Time
}

type EntryOutput struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Status     string     `json:"status"`
	EntryTime  time.Time  `json:"entry_time"`
	ClockIn    *time.Time `json:"clock_in,omitempty"`
	ClockOut   *time.Time `json:"clock_out,omitempty"`
	DurationMs int64      `json:"duration_ms"`
	Location   *Location  `json:"location,omitempty"`
}

package domain

import "time"

type EntryType string

const (
	EntryClockIn    EntryType = "clock_in"
	EntryClockOut   EntryType = "clock_out"
	EntryBreakStart EntryType = "break_start"
	EntryBreakEnd   EntryType = "break_end"
)

type EntryStatus string

const (
	EntryActive    EntryStatus = "active"
	EntryCompleted EntryStatus = "completed"
)

// Coordinates is a geographic fix attached to a clock-in when available.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// TimeEntry is the backend system-of-record row. At most one entry with
// EntryActive status may exist per (UserID, CompanyID); that row is the
// authoritative "clocked in" signal.
type TimeEntry struct {
	ID           string
	UserID       string
	CompanyID    string
	Type         EntryType
	EntryTime    time.Time
	ClockInTime  time.Time
	ClockOutTime time.Time
	Status       EntryStatus
	Location     *Coordinates
	DurationMs   int64
}

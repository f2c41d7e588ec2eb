package out

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"witar/internal/modules/tracker/domain"
	trackerout "witar/internal/modules/tracker/port/out"
	apperrors "witar/internal/platform/errors"
	"witar/internal/platform/id"

	_ "modernc.org/sqlite"
)

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// SQLiteEntryStore is the offline-capable time-entry system of record.
type SQLiteEntryStore struct {
	db    *sql.DB
	idGen id.Generator
}

func NewSQLiteEntryStore(dbPath string, idGen id.Generator) (trackerout.EntryStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	store := &SQLiteEntryStore{db: db, idGen: idGen}
	if err := store.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *SQLiteEntryStore) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS time_entries (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  company_id TEXT NOT NULL,
  entry_type TEXT NOT NULL,
  entry_time TEXT NOT NULL,
  clock_in_time TEXT,
  clock_out_time TEXT,
  status TEXT NOT NULL,
  location_lat REAL,
  location_lng REAL,
  duration_ms INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_time_entries_active
  ON time_entries (user_id, company_id, status);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create time_entries table: %w", err)
	}
	return nil
}

func (s *SQLiteEntryStore) CreateActiveEntry(ctx context.Context, userID, companyID string, entryTime time.Time, loc *domain.Coordinates) (domain.TimeEntry, error) {
	if userID == "" {
		return domain.TimeEntry{}, apperrors.ErrNotAuthenticated
	}
	if companyID == "" {
		return domain.TimeEntry{}, fmt.Errorf("%w: company id is required", apperrors.ErrInvalidInput)
	}
	entry := domain.TimeEntry{
		ID:          s.idGen.New(),
		UserID:      userID,
		CompanyID:   companyID,
		Type:        domain.EntryClockIn,
		EntryTime:   entryTime,
		ClockInTime: entryTime,
		Status:      domain.EntryActive,
		Location:    loc,
	}
	const stmt = `
INSERT INTO time_entries (id, user_id, company_id, entry_type, entry_time, clock_in_time, status, location_lat, location_lng)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
`
	var lat, lng any
	if loc != nil {
		lat, lng = loc.Lat, loc.Lng
	}
	_, err := s.db.ExecContext(ctx, stmt,
		entry.ID, userID, companyID, string(entry.Type),
		entryTime.UTC().Format(timeLayout), entryTime.UTC().Format(timeLayout),
		string(domain.EntryActive), lat, lng,
	)
	if err != nil {
		return domain.TimeEntry{}, fmt.Errorf("insert active entry: %w", err)
	}
	return entry, nil
}

func (s *SQLiteEntryStore) FindActiveEntry(ctx context.Context, userID, companyID string) (domain.TimeEntry, error) {
	entries, err := s.ActiveEntries(ctx, userID, companyID)
	if err != nil {
		return domain.TimeEntry{}, err
	}
	if len(entries) == 0 {
		return domain.TimeEntry{}, apperrors.ErrNoActiveEntry
	}
	return entries[0], nil
}

func (s *SQLiteEntryStore) ActiveEntries(ctx context.Context, userID, companyID string) ([]domain.TimeEntry, error) {
	const query = `
SELECT id, user_id, company_id, entry_type, entry_time, clock_in_time, clock_out_time, status, location_lat, location_lng, duration_ms
FROM time_entries
WHERE user_id = ? AND company_id = ? AND status = ?
ORDER BY clock_in_time ASC;
`
	rows, err := s.db.QueryContext(ctx, query, userID, companyID, string(domain.EntryActive))
	if err != nil {
		return nil, fmt.Errorf("query active entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *SQLiteEntryStore) InsertEntry(ctx context.Context, userID, companyID string, kind domain.EntryType, entryTime time.Time) (domain.TimeEntry, error) {
	if userID == "" {
		return domain.TimeEntry{}, apperrors.ErrNotAuthenticated
	}
	entry := domain.TimeEntry{
		ID:        s.idGen.New(),
		UserID:    userID,
		CompanyID: companyID,
		Type:      kind,
		EntryTime: entryTime,
		Status:    domain.EntryCompleted,
	}
	const stmt = `
INSERT INTO time_entries (id, user_id, company_id, entry_type, entry_time, status)
VALUES (?, ?, ?, ?, ?, ?);
`
	_, err := s.db.ExecContext(ctx, stmt,
		entry.ID, userID, companyID, string(kind),
		entryTime.UTC().Format(timeLayout), string(domain.EntryCompleted),
	)
	if err != nil {
		return domain.TimeEntry{}, fmt.Errorf("insert %s entry: %w", kind, err)
	}
	return entry, nil
}

func (s *SQLiteEntryStore) CompleteEntry(ctx context.Context, entryID string, clockOutTime time.Time, durationMs int64) (domain.TimeEntry, error) {
	const stmt = `
UPDATE time_entries
SET entry_type = ?, status = ?, clock_out_time = ?, duration_ms = ?
WHERE id = ? AND status = ?;
`
	res, err := s.db.ExecContext(ctx, stmt,
		string(domain.EntryClockOut), string(domain.EntryCompleted),
		clockOutTime.UTC().Format(timeLayout), durationMs,
		entryID, string(domain.EntryActive),
	)
	if err != nil {
		return domain.TimeEntry{}, fmt.Errorf("complete entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.TimeEntry{}, fmt.Errorf("complete entry: %w", err)
	}
	if affected == 0 {
		return domain.TimeEntry{}, apperrors.ErrNotFound
	}
	return s.entryByID(ctx, entryID)
}

func (s *SQLiteEntryStore) EntriesInRange(ctx context.Context, userID, companyID string, from, to time.Time) ([]domain.TimeEntry, error) {
	const query = `
SELECT id, user_id, company_id, entry_type, entry_time, clock_in_time, clock_out_time, status, location_lat, location_lng, duration_ms
FROM time_entries
WHERE user_id = ? AND company_id = ? AND entry_time >= ? AND entry_time < ?
ORDER BY entry_time ASC;
`
	rows, err := s.db.QueryContext(ctx, query, userID, companyID,
		from.UTC().Format(timeLayout), to.UTC().Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *SQLiteEntryStore) entryByID(ctx context.Context, entryID string) (domain.TimeEntry, error) {
	const query = `
SELECT id, user_id, company_id, entry_type, entry_time, clock_in_time, clock_out_time, status, location_lat, location_lng, duration_ms
FROM time_entries
WHERE id = ?;
`
	rows, err := s.db.QueryContext(ctx, query, entryID)
	if err != nil {
		return domain.TimeEntry{}, fmt.Errorf("query entry: %w", err)
	}
	defer rows.Close()
	entries, err := scanEntries(rows)
	if err != nil {
		return domain.TimeEntry{}, err
	}
	if len(entries) == 0 {
		return domain.TimeEntry{}, apperrors.ErrNotFound
	}
	return entries[0], nil
}

func scanEntries(rows *sql.Rows) ([]domain.TimeEntry, error) {
	var entries []domain.TimeEntry
	for rows.Next() {
		var entry domain.TimeEntry
		var entryType, status string
		var entryTime, clockIn, clockOut sql.NullString
		var lat, lng sql.NullFloat64
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.CompanyID, &entryType,
			&entryTime, &clockIn, &clockOut, &status, &lat, &lng, &entry.DurationMs); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entry.Type = domain.EntryType(entryType)
		entry.Status = domain.EntryStatus(status)
		entry.EntryTime = parseTime(entryTime)
		entry.ClockInTime = parseTime(clockIn)
		entry.ClockOutTime = parseTime(clockOut)
		if lat.Valid && lng.Valid {
			entry.Location = &domain.Coordinates{Lat: lat.Float64, Lng: lng.Float64}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

func parseTime(v sql.NullString) time.Time {
	if !v.Valid || v.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, v.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

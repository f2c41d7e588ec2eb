package out

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"witar/internal/modules/tracker/domain"
	trackerout "witar/internal/modules/tracker/port/out"
	apperrors "witar/internal/platform/errors"
)

// HTTPEntryStore talks to the hosted backend's time-entry REST API. Every
// call carries the client timeout; an unbounded wait would freeze the
// transition that triggered it.
type HTTPEntryStore struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHTTPEntryStore(baseURL, token string, timeout time.Duration) trackerout.EntryStore {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPEntryStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

type wireEntry struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	CompanyID    string     `json:"company_id"`
	EntryType    string     `json:"entry_type"`
	EntryTime    time.Time  `json:"entry_time"`
	ClockInTime  *time.Time `json:"clock_in_time,omitempty"`
	ClockOutTime *time.Time `json:"clock_out_time,omitempty"`
	Status       string     `json:"status"`
	LocationLat  *float64   `json:"location_lat,omitempty"`
	LocationLng  *float64   `json:"location_lng,omitempty"`
	DurationMs   int64      `json:"duration_ms"`
}

func (s *HTTPEntryStore) CreateActiveEntry(ctx context.Context, userID, companyID string, entryTime time.Time, loc *domain.Coordinates) (domain.TimeEntry, error) {
	if userID == "" {
		return domain.TimeEntry{}, apperrors.ErrNotAuthenticated
	}
	if companyID == "" {
		return domain.TimeEntry{}, fmt.Errorf("%w: company id is required", apperrors.ErrInvalidInput)
	}
	body := wireEntry{
		UserID:    userID,
		CompanyID: companyID,
		EntryType: string(domain.EntryClockIn),
		EntryTime: entryTime,
		Status:    string(domain.EntryActive),
	}
	t := entryTime
	body.ClockInTime = &t
	if loc != nil {
		body.LocationLat = &loc.Lat
		body.LocationLng = &loc.Lng
	}
	var out wireEntry
	if err := s.do(ctx, http.MethodPost, "/time-entries", body, &out); err != nil {
		return domain.TimeEntry{}, err
	}
	return out.toDomain(), nil
}

func (s *HTTPEntryStore) FindActiveEntry(ctx context.Context, userID, companyID string) (domain.TimeEntry, error) {
	entries, err := s.ActiveEntries(ctx, userID, companyID)
	if err != nil {
		return domain.TimeEntry{}, err
	}
	if len(entries) == 0 {
		return domain.TimeEntry{}, apperrors.ErrNoActiveEntry
	}
	return entries[0], nil
}

func (s *HTTPEntryStore) ActiveEntries(ctx context.Context, userID, companyID string) ([]domain.TimeEntry, error) {
	query := url.Values{
		"user_id":    {userID},
		"company_id": {companyID},
		"status":     {string(domain.EntryActive)},
		"order":      {"clock_in_time.asc"},
	}
	var out []wireEntry
	if err := s.do(ctx, http.MethodGet, "/time-entries?"+query.Encode(), nil, &out); err != nil {
		return nil, err
	}
	entries := make([]domain.TimeEntry, 0, len(out))
	for _, w := range out {
		entries = append(entries, w.toDomain())
	}
	return entries, nil
}

func (s *HTTPEntryStore) InsertEntry(ctx context.Context, userID, companyID string, kind domain.EntryType, entryTime time.Time) (domain.TimeEntry, error) {
	if userID == "" {
		return domain.TimeEntry{}, apperrors.ErrNotAuthenticated
	}
	body := wireEntry{
		UserID:    userID,
		CompanyID: companyID,
		EntryType: string(kind),
		EntryTime: entryTime,
		Status:    string(domain.EntryCompleted),
	}
	var out wireEntry
	if err := s.do(ctx, http.MethodPost, "/time-entries", body, &out); err != nil {
		return domain.TimeEntry{}, err
	}
	return out.toDomain(), nil
}

func (s *HTTPEntryStore) CompleteEntry(ctx context.Context, entryID string, clockOutTime time.Time, durationMs int64) (domain.TimeEntry, error) {
	body := wireEntry{
		EntryType:  string(domain.EntryClockOut),
		Status:     string(domain.EntryCompleted),
		DurationMs: durationMs,
	}
	t := clockOutTime
	body.ClockOutTime = &t
	var out wireEntry
	if err := s.do(ctx, http.MethodPatch, "/time-entries/"+url.PathEscape(entryID), body, &out); err != nil {
		return domain.TimeEntry{}, err
	}
	return out.toDomain(), nil
}

func (s *HTTPEntryStore) EntriesInRange(ctx context.Context, userID, companyID string, from, to time.Time) ([]domain.TimeEntry, error) {
	query := url.Values{
		"user_id":    {userID},
		"company_id": {companyID},
		"from":       {from.UTC().Format(time.RFC3339)},
		"to":         {to.UTC().Format(time.RFC3339)},
	}
	var out []wireEntry
	if err := s.do(ctx, http.MethodGet, "/time-entries?"+query.Encode(), nil, &out); err != nil {
		return nil, err
	}
	entries := make([]domain.TimeEntry, 0, len(out))
	for _, w := range out {
		entries = append(entries, w.toDomain())
	}
	return entries, nil
}

func (s *HTTPEntryStore) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return apperrors.ErrNotAuthenticated
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.ErrNotFound
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (w wireEntry) toDomain() domain.TimeEntry {
	entry := domain.TimeEntry{
		ID:         w.ID,
		UserID:     w.UserID,
		CompanyID:  w.CompanyID,
		Type:       domain.EntryType(w.EntryType),
		EntryTime:  w.EntryTime,
		Status:     domain.EntryStatus(w.Status),
		DurationMs: w.DurationMs,
	}
	if w.ClockInTime != nil {
		entry.ClockInTime = *w.ClockInTime
	}
	if w.ClockOutTime != nil {
		entry.ClockOutTime = *w.ClockOutTime
	}
	if w.LocationLat != nil && w.LocationLng != nil {
		entry.Location = &domain.Coordinates{Lat: *w.LocationLat, Lng: *w.LocationLng}
	}
	return entry
}

package usecase

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"witar/internal/modules/tracker/domain"
	"witar/internal/modules/tracker/dto"
	trackerin "witar/internal/modules/tracker/port/in"
	trackerout "witar/internal/modules/tracker/port/out"
	"witar/internal/modules/tracker/service"
	"witar/internal/platform/clock"
	apperrors "witar/internal/platform/errors"
)

type Interactor struct {
	svc     *service.TrackerService
	entries trackerout.EntryStore
	locator trackerout.Locator
	clock   clock.Clock
	log     *logrus.Entry

	userID          string
	companyID       string
	locationTimeout time.Duration
}

type Identity struct {
	UserID    string
	CompanyID string
}

func NewInteractor(svc *service.TrackerService, entries trackerout.EntryStore, locator trackerout.Locator, clk clock.Clock, log *logrus.Entry, identity Identity, locationTimeout time.Duration) trackerin.Usecase {
	if locationTimeout <= 0 {
		locationTimeout = 10 * time.Second
	}
	return &Interactor{
		svc:             svc,
		entries:         entries,
		locator:         locator,
		clock:           clk,
		log:             log,
		userID:          identity.UserID,
		companyID:       identity.CompanyID,
		locationTimeout: locationTimeout,
	}
}

func (i *Interactor) authorize() error {
	if i.userID == "" {
		return apperrors.ErrNotAuthenticated
	}
	if i.companyID == "" {
		return apperrors.ErrInvalidInput
	}
	return nil
}

func (i *Interactor) ClockIn(ctx context.Context, input dto.ClockInInput) (dto.SessionOutput, error) {
	if err := i.authorize(); err != nil {
		return dto.SessionOutput{}, err
	}
	loc := coordsFromDTO(input.Location)
	if loc == nil {
		loc = i.acquireLocation(ctx)
	}
	session, err := i.svc.ClockIn(ctx, loc)
	if err != nil {
		return dto.SessionOutput{}, err
	}
	return i.sessionOutput(session), nil
}

func (i *Interactor) ClockOut(ctx context.Context) (dto.ClockOutOutput, error) {
	if err := i.authorize(); err != nil {
		return dto.ClockOutOutput{}, err
	}
	entryID, durationMs, err := i.svc.ClockOut(ctx)
	if err != nil {
		return dto.ClockOutOutput{}, err
	}
	return dto.ClockOutOutput{EntryID: entryID, DurationMs: durationMs}, nil
}

func (i *Interactor) Pause(ctx context.Context) (dto.SessionOutput, error) {
	if err := i.authorize(); err != nil {
		return dto.SessionOutput{}, err
	}
	session, err := i.svc.Pause(ctx)
	if err != nil {
		return dto.SessionOutput{}, err
	}
	return i.sessionOutput(session), nil
}

func (i *Interactor) Resume(ctx context.Context) (dto.SessionOutput, error) {
	if err := i.authorize(); err != nil {
		return dto.SessionOutput{}, err
	}
	session, err := i.svc.Resume(ctx)
	if err != nil {
		return dto.SessionOutput{}, err
	}
	return i.sessionOutput(session), nil
}

func (i *Interactor) Status(_ context.Context) (dto.SessionOutput, error) {
	return i.sessionOutput(i.svc.Session()), nil
}

func (i *Interactor) Sync(ctx context.Context) (dto.SyncOutput, error) {
	if err := i.authorize(); err != nil {
		return dto.SyncOutput{}, err
	}
	result, err := i.svc.Reconcile(ctx)
	if err != nil {
		return dto.SyncOutput{}, err
	}
	return dto.SyncOutput{
		Restored:  result.Restored,
		Corrected: result.Corrected,
		SyncedAt:  i.svc.Session().LastSyncAt,
	}, nil
}

func (i *Interactor) CurrentLocation(ctx context.Context) (dto.LocationOutput, error) {
	out := dto.LocationOutput{Permission: string(i.locator.Permission(ctx))}
	if loc := i.acquireLocation(ctx); loc != nil {
		out.Location = &dto.Location{Lat: loc.Lat, Lng: loc.Lng}
	}
	return out, nil
}

func (i *Interactor) Entries(ctx context.Context, input dto.EntriesInput) ([]dto.EntryOutput, error) {
	if err := i.authorize(); err != nil {
		return nil, err
	}
	day := input.Day
	if day.IsZero() {
		day = i.clock.Now().UTC()
	}
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	entries, err := i.entries.EntriesInRange(ctx, i.userID, i.companyID, from, from.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}
	out := make([]dto.EntryOutput, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryOutput(e))
	}
	return out, nil
}

// acquireLocation is best-effort and time-boxed: no permission, timeout or
// lookup failure all degrade to "no location" rather than blocking the
// clock-in.
func (i *Interactor) acquireLocation(ctx context.Context) *domain.Coordinates {
	if i.locator == nil {
		return nil
	}
	if i.locator.Permission(ctx) == trackerout.PermissionDenied {
		return nil
	}
	lctx, cancel := context.WithTimeout(ctx, i.locationTimeout)
	defer cancel()
	loc, err := i.locator.Position(lctx)
	if err != nil {
		i.log.WithError(err).Info("clocking in without location")
		return nil
	}
	return &loc
}

func (i *Interactor) sessionOutput(session domain.Session) dto.SessionOutput {
	out := dto.SessionOutput{
		Active:    session.IsActive(),
		Paused:    session.IsPaused(),
		ElapsedMs: session.ElapsedMs,
		PausedMs:  session.TotalPausedMs,
		Online:    i.svc.Online(),
	}
	if session.IsActive() {
		t := session.StartedAt
		out.StartedAt = &t
	}
	if session.Location != nil {
		out.Location = &dto.Location{Lat: session.Location.Lat, Lng: session.Location.Lng}
	}
	if !session.LastSyncAt.IsZero() {
		t := session.LastSyncAt
		out.LastSyncAt = &t
	}
	return out
}

func entryOutput(e domain.TimeEntry) dto.EntryOutput {
	out := dto.EntryOutput{
		ID:         e.ID,
		Type:       string(e.Type),
		Status:     string(e.Status),
		EntryTime:  e.EntryTime,
		DurationMs: e.DurationMs,
	}
	if !e.ClockInTime.IsZero() {
		t := e.ClockInTime
		out.ClockIn = &t
	}
	if !e.ClockOutTime.IsZero() {
		t := e.ClockOutTime
		out.ClockOut = &t
	}
	if e.Location != nil {
		out.Location = &dto.Location{Lat: e.Location.Lat, Lng: e.Location.Lng}
	}
	return out
}

func coordsFromDTO(loc *dto.Location) *domain.Coordinates {
	if loc == nil {
		return nil
	}
	return &domain.Coordinates{Lat: loc.Lat, Lng: loc.Lng}
}

package in

import (
	"context"
	"time"

	trackerdto "witar/internal/modules/tracker/dto"
	trackerin "witar/internal/modules/tracker/port/in"
)

type CLIHandler struct {
	usecase trackerin.Usecase
}

func NewCLIHandler(usecase trackerin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) ClockIn(ctx context.Context) (trackerdto.SessionOutput, error) {
	return h.usecase.ClockIn(ctx, trackerdto.ClockInInput{})
}

func (h CLIHandler) ClockOut(ctx context.Context) (trackerdto.ClockOutOutput, error) {
	return h.usecase.ClockOut(ctx)
}

func (h CLIHandler) Pause(ctx context.Context) (trackerdto.SessionOutput, error) {
	return h.usecase.Pause(ctx)
}

func (h CLIHandler) Resume(ctx context.Context) (trackerdto.SessionOutput, error) {
	return h.usecase.Resume(ctx)
}

func (h CLIHandler) Status(ctx context.Context) (trackerdto.SessionOutput, error) {
	return h.usecase.Status(ctx)
}

func (h CLIHandler) Sync(ctx context.Context) (trackerdto.SyncOutput, error) {
	return h.usecase.Sync(ctx)
}

func (h CLIHandler) CurrentLocation(ctx context.Context) (trackerdto.LocationOutput, error) {
	return h.usecase.CurrentLocation(ctx)
}

func (h CLIHandler) Entries(ctx context.Context, day time.Time) ([]trackerdto.EntryOutput, error) {
	return h.usecase.Entries(ctx, trackerdto.EntriesInput{Day: day})
}

package in

import (
	"context"

	"witar/internal/modules/tracker/dto"
)

type Usecase interface {
	ClockIn(ctx context.Context, input dto.ClockInInput) (dto.SessionOutput, error)
	ClockOut(ctx context.Context) (dto.ClockOutOutput, error)
	Pause(ctx context.Context) (dto.SessionOutput, error)
	Resume(ctx context.Context) (dto.SessionOutput, error)
	Status(ctx context.Context) (dto.SessionOutput, error)
	// Sync runs one reconciliation cycle and surfaces its outcome, unlike
	// the background cycles which swallow failures.
	Sync(ctx context.Context) (dto.SyncOutput, error)
	CurrentLocation(ctx context.Context) (dto.LocationOutput, error)
	Entries(ctx context.Context, input dto.EntriesInput) ([]dto.EntryOutput, error)
}

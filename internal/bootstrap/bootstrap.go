package bootstrap

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	trackerinadapter "witar/internal/modules/tracker/adapter/in"
	trackeroutadapter "witar/internal/modules/tracker/adapter/out"
	trackerout "witar/internal/modules/tracker/port/out"
	trackerservice "witar/internal/modules/tracker/service"
	trackerusecase "witar/internal/modules/tracker/usecase"
	"witar/internal/platform/clock"
	"witar/internal/platform/config"
	"witar/internal/platform/id"
	"witar/internal/platform/logging"
	uiapp "witar/internal/ui/app"
)

type App struct {
	TrackerCLI trackerinadapter.CLIHandler
	Runner     *trackerservice.Runner
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	log := logging.NewLogger("tracker")
	clk := clock.SystemClock{}
	ids := id.RandomHex{}

	var entries trackerout.EntryStore
	switch cfg.Store {
	case config.StoreHTTP:
		entries = trackeroutadapter.NewHTTPEntryStore(cfg.APIBaseURL, cfg.AuthToken, cfg.StoreTimeout)
	default:
		store, err := trackeroutadapter.NewSQLiteEntryStore(cfg.DBPath, ids)
		if err != nil {
			return nil, fmt.Errorf("new entry store: %w", err)
		}
		entries = store
	}

	snapshots := trackeroutadapter.NewFileSnapshotStore(cfg.SnapshotPath)

	svc := trackerservice.NewTrackerService(clk, entries, snapshots, log, trackerservice.Options{
		UserID:          cfg.UserID,
		CompanyID:       cfg.CompanyID,
		DriftTolerance:  cfg.DriftTolerance,
		PersistInterval: cfg.PersistInterval,
		StoreTimeout:    cfg.StoreTimeout,
	})
	// Local state first: a restart must show "still clocked in" before any
	// network round trip completes.
	if err := svc.Restore(ctx); err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}

	locator := trackeroutadapter.NewHTTPLocator(cfg.LocationURL, cfg.LocationMode, cfg.LocationTimeout)

	uc := trackerusecase.NewInteractor(svc, entries, locator, clk, log, trackerusecase.Identity{
		UserID:    cfg.UserID,
		CompanyID: cfg.CompanyID,
	}, cfg.LocationTimeout)

	reconcileIfActive := func(ctx context.Context) {
		if !svc.Session().IsActive() {
			return
		}
		if _, err := svc.Reconcile(ctx); err != nil {
			log.WithError(err).Warn("watcher-triggered reconcile")
		}
	}

	var watchers []trackerservice.Watcher
	if cfg.APIBaseURL != "" {
		probe := trackeroutadapter.DialProbe(cfg.APIBaseURL, cfg.StoreTimeout)
		watchers = append(watchers, trackeroutadapter.NewConnectivityWatcher(probe, svc.SetOnline,
			logging.NewLogger("connectivity"), cfg.ProbeInterval))
	}
	watchers = append(watchers, trackeroutadapter.NewWakeWatcher(reconcileIfActive,
		logging.NewLogger("wake"), cfg.TickInterval, 5*cfg.TickInterval))
	if cfg.RealtimeURL != "" {
		watchers = append(watchers, trackeroutadapter.NewRealtimeWatcher(cfg.RealtimeURL, cfg.AuthToken,
			reconcileIfActive, logging.NewLogger("realtime")))
	}

	runner := trackerservice.NewRunner(svc, log, cfg.TickInterval, cfg.ReconcileInterval, watchers...)

	return &App{
		TrackerCLI: trackerinadapter.NewCLIHandler(uc),
		Runner:     runner,
	}, nil
}

func RunTUI(ctx context.Context, app *App) error {
	app.Runner.Start(ctx)
	defer app.Runner.Stop()

	model := uiapp.NewModel(app.TrackerCLI)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}

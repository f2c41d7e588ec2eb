package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Watcher is a passive event source feeding the tracker: connectivity,
// wake-from-suspend, realtime store events. Implementations must tolerate
// repeated Start/Stop calls.
type Watcher interface {
	Start(ctx context.Context)
	Stop()
}

// Runner drives the recurring work while the process stays up: the
// 1-second display tick and the periodic reconciliation cycle, plus the
// attached watchers. Safe to start and stop repeatedly.
type Runner struct {
	svc      *TrackerService
	log      *logrus.Entry
	tick     time.Duration
	interval time.Duration
	watchers []Watcher

	running atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup
}

func NewRunner(svc *TrackerService, log *logrus.Entry, tick, reconcileInterval time.Duration, watchers ...Watcher) *Runner {
	if tick <= 0 {
		tick = time.Second
	}
	if reconcileInterval <= 0 {
		reconcileInterval = 30 * time.Second
	}
	return &Runner{svc: svc, log: log, tick: tick, interval: reconcileInterval, watchers: watchers}
}

func (r *Runner) Start(ctx context.Context) {
	if !r.running.CompareAndSwap(false, true) {
		return
	}
	r.done = make(chan struct{})
	for _, w := range r.watchers {
		w.Start(ctx)
	}
	// Startup reconcile, off the caller's path.
	go func() {
		if _, err := r.svc.Reconcile(ctx); err != nil {
			r.log.WithError(err).Warn("startup reconcile")
		}
	}()
	r.wg.Add(1)
	go r.loop(ctx)
}

func (r *Runner) Stop() {
	if !r.running.CompareAndSwap(true, false) {
		return
	}
	close(r.done)
	for _, w := range r.watchers {
		w.Stop()
	}
	r.wg.Wait()
}

func (r *Runner) loop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()
	reconcile := time.NewTicker(r.interval)
	defer reconcile.Stop()

	for {
		select {
		case <-ticker.C:
			r.svc.Tick(ctx)
		case <-reconcile.C:
			if !r.svc.Session().IsActive() {
				continue
			}
			if _, err := r.svc.Reconcile(ctx); err != nil {
				// Background hygiene only: never surfaced, never fatal.
				r.log.WithError(err).Warn("background reconcile")
			}
		case <-r.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

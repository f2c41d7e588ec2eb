package out

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// WakeWatcher detects the terminal-process analog of a browser tab
// regaining visibility: the machine slept, the laptop lid closed, or the
// process was suspended. It measures how late each tick arrives; a gap
// well beyond the tick interval means wall-clock time passed that the
// process never saw, and the callback (a reconciliation trigger) fires.
type WakeWatcher struct {
	onWake    func(ctx context.Context)
	log       *logrus.Entry
	interval  time.Duration
	threshold time.Duration

	running atomic.Bool
	done    chan struct{}
}

func NewWakeWatcher(onWake func(ctx context.Context), log *logrus.Entry, interval, threshold time.Duration) *WakeWatcher {
	if interval <= 0 {
		interval = time.Second
	}
	if threshold <= 0 {
		threshold = 5 * time.Second
	}
	return &WakeWatcher{onWake: onWake, log: log, interval: interval, threshold: threshold}
}

func (w *WakeWatcher) Start(ctx context.Context) {
	if !w.running.CompareAndSwap(false, true) {
		return
	}
	w.done = make(chan struct{})
	go w.loop(ctx)
}

func (w *WakeWatcher) Stop() {
	if !w.running.CompareAndSwap(true, false) {
		return
	}
	close(w.done)
}

func (w *WakeWatcher) loop(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			if GapExceeded(last, now, w.interval, w.threshold) {
				if w.log != nil {
					w.log.WithField("gap", now.Sub(last).String()).Info("wake detected")
				}
				if w.onWake != nil {
					w.onWake(ctx)
				}
			}
			last = now
		case <-w.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// GapExceeded reports whether the observed gap between ticks indicates a
// suspension rather than ordinary scheduler jitter.
func GapExceeded(last, now time.Time, interval, threshold time.Duration) bool {
	return now.Sub(last) > interval+threshold
}

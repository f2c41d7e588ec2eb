package out

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// RealtimeWatcher subscribes to the backend's change feed over a websocket
// and triggers reconciliation on every time-entry event, the push variant
// of the polling cycle. The correction logic itself is unchanged; this
// only replaces the timer as the trigger. Reconnects with capped backoff.
type RealtimeWatcher struct {
	url     string
	token   string
	onEvent func(ctx context.Context)
	log     *logrus.Entry

	running atomic.Bool
	done    chan struct{}
	cancel  context.CancelFunc
}

type realtimeEvent struct {
	Table string `json:"table"`
	Event string `json:"event"`
}

func NewRealtimeWatcher(url, token string, onEvent func(ctx context.Context), log *logrus.Entry) *RealtimeWatcher {
	return &RealtimeWatcher{url: url, token: token, onEvent: onEvent, log: log}
}

func (w *RealtimeWatcher) Start(ctx context.Context) {
	if w.url == "" {
		return
	}
	if !w.running.CompareAndSwap(false, true) {
		return
	}
	w.done = make(chan struct{})
	ctx, w.cancel = context.WithCancel(ctx)
	go w.loop(ctx)
}

func (w *RealtimeWatcher) Stop() {
	if !w.running.CompareAndSwap(true, false) {
		return
	}
	w.cancel()
	close(w.done)
}

func (w *RealtimeWatcher) loop(ctx context.Context) {
	backoff := time.Second
	for {
		select {
		case <-w.done:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := w.listen(ctx); err != nil && w.log != nil {
			w.log.WithError(err).Debug("realtime connection lost")
		}

		select {
		case <-time.After(backoff):
		case <-w.done:
			return
		case <-ctx.Done():
			return
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (w *RealtimeWatcher) listen(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	header := map[string][]string{}
	if w.token != "" {
		header["Authorization"] = []string{"Bearer " + w.token}
	}
	conn, _, err := dialer.DialContext(ctx, w.url, header)
	if err != nil {
		return err
	}
	defer conn.Close()

	if w.log != nil {
		w.log.Debug("realtime feed connected")
	}
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var event realtimeEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			continue
		}
		if event.Table != "time_entries" {
			continue
		}
		if w.onEvent != nil {
			w.onEvent(ctx)
		}
	}
}

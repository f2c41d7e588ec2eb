package out

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// ConnectivityWatcher polls backend reachability and reports transitions.
// It keeps no session state of its own; its whole contract is "call back
// when online-ness changes". Start and Stop are idempotent because the
// watcher may be attached and detached repeatedly in one process.
type ConnectivityWatcher struct {
	probe    func(ctx context.Context) bool
	onChange func(ctx context.Context, online bool)
	log      *logrus.Entry
	interval time.Duration

	running atomic.Bool
	done    chan struct{}
	online  bool
	seeded  bool
}

func NewConnectivityWatcher(probe func(ctx context.Context) bool, onChange func(ctx context.Context, online bool), log *logrus.Entry, interval time.Duration) *ConnectivityWatcher {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &ConnectivityWatcher{probe: probe, onChange: onChange, log: log, interval: interval}
}

// HTTPProbe reports whether the backend base URL is reachable. A HEAD is
// enough; any response at all means the network path is up.
func HTTPProbe(baseURL string, timeout time.Duration) func(ctx context.Context) bool {
	client := &http.Client{Timeout: timeout}
	return func(ctx context.Context) bool {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, baseURL, nil)
		if err != nil {
			return false
		}
		resp, err := client.Do(req)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return true
	}
}

// DialProbe checks reachability of a host without issuing a request, for
// backends that reject bare HEADs.
func DialProbe(rawURL string, timeout time.Duration) func(ctx context.Context) bool {
	return func(ctx context.Context) bool {
		u, err := url.Parse(rawURL)
		if err != nil {
			return false
		}
		host := u.Host
		if u.Port() == "" {
			switch u.Scheme {
			case "https", "wss":
				host = net.JoinHostPort(u.Hostname(), "443")
			default:
				host = net.JoinHostPort(u.Hostname(), "80")
			}
		}
		d := net.Dialer{Timeout: timeout}
		conn, err := d.DialContext(ctx, "tcp", host)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}
}

func (w *ConnectivityWatcher) Start(ctx context.Context) {
	if !w.running.CompareAndSwap(false, true) {
		return
	}
	w.done = make(chan struct{})
	go w.loop(ctx)
}

func (w *ConnectivityWatcher) Stop() {
	if !w.running.CompareAndSwap(true, false) {
		return
	}
	close(w.done)
}

func (w *ConnectivityWatcher) loop(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.poll(ctx)
	for {
		select {
		case <-ticker.C:
			w.poll(ctx)
		case <-w.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *ConnectivityWatcher) poll(ctx context.Context) {
	online := w.probe(ctx)
	if w.seeded && online == w.online {
		return
	}
	first := !w.seeded
	w.online = online
	w.seeded = true
	if w.log != nil && !first {
		w.log.WithField("online", online).Info("connectivity changed")
	}
	if w.onChange != nil {
		w.onChange(ctx, online)
	}
}

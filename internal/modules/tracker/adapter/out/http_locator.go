package out

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"witar/internal/modules/tracker/domain"
	trackerout "witar/internal/modules/tracker/port/out"
	"witar/internal/platform/config"
)

const defaultLocationURL = "https://ipapi.co/json/"

// HTTPLocator resolves a coarse device position from an IP-geolocation
// endpoint. Strictly best-effort: callers treat any failure as "no
// location". Permission state derives from the configured location mode so
// the UI can explain why no badge is shown.
type HTTPLocator struct {
	url    string
	mode   string
	client *http.Client
}

func NewHTTPLocator(url, mode string, timeout time.Duration) trackerout.Locator {
	if url == "" {
		url = defaultLocationURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPLocator{url: url, mode: mode, client: &http.Client{Timeout: timeout}}
}

func (l *HTTPLocator) Position(ctx context.Context) (domain.Coordinates, error) {
	if l.mode == config.LocationNever {
		return domain.Coordinates{}, fmt.Errorf("location lookups are disabled")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("build location request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("position unavailable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return domain.Coordinates{}, fmt.Errorf("position unavailable: status %d", resp.StatusCode)
	}

	var payload struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.Coordinates{}, fmt.Errorf("decode position: %w", err)
	}
	if payload.Latitude == 0 && payload.Longitude == 0 {
		return domain.Coordinates{}, fmt.Errorf("position unavailable: empty fix")
	}
	return domain.Coordinates{Lat: payload.Latitude, Lng: payload.Longitude}, nil
}

func (l *HTTPLocator) Permission(_ context.Context) trackerout.Permission {
	switch l.mode {
	case config.LocationAlways:
		return trackerout.PermissionGranted
	case config.LocationNever:
		return trackerout.PermissionDenied
	case config.LocationAsk:
		return trackerout.PermissionPrompt
	default:
		return trackerout.PermissionUnknown
	}
}

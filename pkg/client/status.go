// Package client provides an HTTP client for the monitor status API.
package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/hargaemas/gold-monitor/pkg/storage"
)

// StaleHeader is set to "true" on status responses whose underlying
// observations are past the monitor's staleness window.
const StaleHeader = "X-Goldmon-Stale"

// MonitorStatus is the response body of GET /status/{monitor}.
type MonitorStatus struct {
	Monitor         string               `json:"monitor"`
	Severity        storage.Severity     `json:"severity"`
	Since           time.Time            `json:"since"`
	Stale           bool                 `json:"stale"`
	LastObservation *storage.Observation `json:"last_observation,omitempty"`
	Delta           *float64             `json:"delta,omitempty"`
	Direction       string               `json:"direction,omitempty"`
}

// StatusClient talks to a running monitor instance.
type StatusClient struct {
	http *resty.Client
}

// NewStatusClient returns a client for the monitor API at baseURL,
// e.g. "http://localhost:10000".
func NewStatusClient(baseURL string, timeout time.Duration) *StatusClient {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &StatusClient{http: c}
}

// GetStatus fetches the current alert state of a single monitor.
// The second return value reports whether the server flagged the
// state as stale via the response header.
func (c *StatusClient) GetStatus(ctx context.Context, monitor string) (*MonitorStatus, bool, error) {
	var status MonitorStatus

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&status).
		SetPathParam("monitor", monitor).
		Get("/status/{monitor}")
	if err != nil {
		return nil, false, fmt.Errorf("get status for %s: %w", monitor, err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		stale := resp.Header().Get(StaleHeader) == "true"
		return &status, stale, nil
	case http.StatusNotFound:
		return nil, false, fmt.Errorf("monitor %s not found", monitor)
	default:
		return nil, false, fmt.Errorf("get status for %s: unexpected status %d", monitor, resp.StatusCode())
	}
}

// GetAll fetches the status of every registered monitor.
func (c *StatusClient) GetAll(ctx context.Context) ([]MonitorStatus, error) {
	var statuses []MonitorStatus

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&statuses).
		Get("/status")
	if err != nil {
		return nil, fmt.Errorf("get statuses: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("get statuses: unexpected status %d", resp.StatusCode())
	}
	return statuses, nil
}

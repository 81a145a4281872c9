// Package router configures HTTP routes for the monitor's HTTP API.
//
// The monitor exposes an HTTP server on port 10000 (configurable) that
// serves alert states, observation history, health checks, and
// Prometheus metrics.
//
// Routes configured:
//   - GET /healthz - Health check endpoint (returns 200 OK)
//   - GET /metrics - Prometheus metrics endpoint
//   - GET /status - Alert state of every monitor
//   - GET /status/{monitor} - Alert state of a single monitor
//   - GET /history/{monitor}?limit=N - Recent observations for a monitor
//
// Status responses for monitors whose newest observation is past the
// staleness window carry an X-Goldmon-Stale: true header. The status
// and history routes are rate limited per client IP; /healthz and
// /metrics are exempt so probes and scrapes are never throttled.
package router

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hargaemas/gold-monitor/pkg/httpx"
	"github.com/hargaemas/gold-monitor/pkg/rules"
	"github.com/hargaemas/gold-monitor/pkg/storage"
)

const staleHeader = "X-Goldmon-Stale"

type statusView struct {
	Monitor         string               `json:"monitor"`
	Severity        storage.Severity     `json:"severity"`
	Since           time.Time            `json:"since"`
	Stale           bool                 `json:"stale"`
	LastObservation *storage.Observation `json:"last_observation,omitempty"`
	Delta           *float64             `json:"delta,omitempty"`
	Direction       string               `json:"direction,omitempty"`
}

// SetupRoutes configures HTTP endpoints for the monitor. rulesets maps
// monitor names to their evaluation rules, used to recompute staleness
// at read time.
func SetupRoutes(store storage.Store, rulesets map[string]rules.Ruleset, limiter *RateLimiter, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(httpx.RecoveryMiddleware(logger))
	r.Use(httpx.LoggingMiddleware(logger))

	r.Method(http.MethodGet, "/healthz", httpx.HealthHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(limiter.Middleware)
		r.Get("/status", handleListStatus(store, rulesets, logger))
		r.Get("/status/{monitor}", handleGetStatus(store, rulesets, logger))
		r.Get("/history/{monitor}", handleGetHistory(store, logger))
	})

	return r
}

// handleListStatus returns a handler for GET /status.
func handleListStatus(store storage.Store, rulesets map[string]rules.Ruleset, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names := store.Monitors()
		views := make([]statusView, 0, len(names))

		for _, name := range names {
			view, err := buildStatus(r, store, name, rulesets[name])
			if err != nil {
				logger.Error("failed to build status", "monitor", name, "error", err)
				httpx.WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
				return
			}
			views = append(views, view)
		}

		httpx.WriteJSON(w, http.StatusOK, views)
	}
}

// handleGetStatus returns a handler for GET /status/{monitor}.
func handleGetStatus(store storage.Store, rulesets map[string]rules.Ruleset, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "monitor")

		view, err := buildStatus(r, store, name, rulesets[name])
		if err != nil {
			if errors.Is(err, storage.ErrUnknownMonitor) {
				httpx.WriteErrorMessage(w, http.StatusNotFound, fmt.Sprintf("unknown monitor %q", name))
				return
			}
			logger.Error("failed to build status", "monitor", name, "error", err)
			httpx.WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
			return
		}

		if view.Stale {
			w.Header().Set(staleHeader, "true")
		}
		httpx.WriteJSON(w, http.StatusOK, view)
	}
}

// handleGetHistory returns a handler for GET /history/{monitor}?limit=N.
func handleGetHistory(store storage.Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "monitor")

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				httpx.WriteErrorMessage(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = n
		}

		history, err := store.History(r.Context(), name, limit)
		if err != nil {
			if errors.Is(err, storage.ErrUnknownMonitor) {
				httpx.WriteErrorMessage(w, http.StatusNotFound, fmt.Sprintf("unknown monitor %q", name))
				return
			}
			logger.Error("failed to get history", "monitor", name, "error", err)
			httpx.WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
			return
		}

		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"monitor":      name,
			"count":        len(history),
			"observations": history,
		})
	}
}

func buildStatus(r *http.Request, store storage.Store, name string, rs rules.Ruleset) (statusView, error) {
	ctx := r.Context()

	state, found, err := store.State(ctx, name)
	if err != nil {
		return statusView{}, err
	}

	view := statusView{
		Monitor:  name,
		Severity: storage.SeverityUnknown,
		Stale:    true,
	}
	if found {
		view.Severity = state.Severity
		view.Since = state.Since
		view.Stale = state.Stale
	}

	history, err := store.History(ctx, name, 2)
	if err != nil {
		return statusView{}, err
	}
	if len(history) == 0 {
		return view, nil
	}

	newest := history[len(history)-1]
	view.LastObservation = &newest

	// Staleness can set in between polls; recompute at read time.
	if rs.StaleAfter > 0 && time.Since(newest.Timestamp) >= rs.StaleAfter {
		view.Stale = true
	}

	if len(history) == 2 {
		delta := newest.Value - history[0].Value
		view.Delta = &delta
		switch {
		case delta > 0:
			view.Direction = "rising"
		case delta < 0:
			view.Direction = "falling"
		default:
			view.Direction = "flat"
		}
	}

	return view, nil
}

// Package main implements the gold-monitor daemon.
// The monitor polls upstream rate sources, evaluates severity against
// thresholds, dispatches alerts on transitions, and serves alert state
// via HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hargaemas/gold-monitor/cmd/monitor/config"
	"github.com/hargaemas/gold-monitor/cmd/monitor/metrics"
	"github.com/hargaemas/gold-monitor/pkg/alert"
	"github.com/hargaemas/gold-monitor/pkg/backoff"
	"github.com/hargaemas/gold-monitor/pkg/fetch"
	"github.com/hargaemas/gold-monitor/pkg/rules"
	"github.com/hargaemas/gold-monitor/pkg/storage"
)

// Poller orchestrates the poll loop for one monitor:
// fetch → record → evaluate → transition → dispatch.
type Poller struct {
	name         string
	fetcher      fetch.Fetcher
	store        storage.Store
	ruleset      rules.Ruleset
	dispatcher   *alert.Dispatcher
	metrics      *metrics.Metrics
	backoff      *backoff.Backoff
	maxAttempts  int
	interval     time.Duration
	fetchTimeout time.Duration
	logger       *slog.Logger
}

// NewPoller creates a Poller from a monitor definition.
func NewPoller(
	cfg config.MonitorConfig,
	fetcher fetch.Fetcher,
	store storage.Store,
	dispatcher *alert.Dispatcher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Poller {
	if logger == nil {
		logger = slog.Default()
	}

	b := backoff.New(cfg.Retry.InitialDelay, cfg.Retry.MaxDelay)

	return &Poller{
		name:         cfg.Name,
		fetcher:      fetcher,
		store:        store,
		ruleset:      cfg.Ruleset(),
		dispatcher:   dispatcher,
		metrics:      m,
		backoff:      b,
		maxAttempts:  cfg.Retry.MaxAttempts,
		interval:     cfg.Poll.Interval,
		fetchTimeout: cfg.Source.Timeout,
		logger:       logger.With("monitor", cfg.Name),
	}
}

// Run executes the poll loop at regular intervals.
// Blocks until context is canceled.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("starting poll loop", "interval", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	if err := p.Tick(ctx); err != nil && !errors.Is(err, context.Canceled) {
		p.logger.Error("poll tick failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poll loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := p.Tick(ctx); err != nil && !errors.Is(err, context.Canceled) {
				p.logger.Error("poll tick failed", "error", err)
			}
		}
	}
}

// Tick performs one poll cycle.
// Exported for testing purposes.
func (p *Poller) Tick(ctx context.Context) error {
	start := time.Now()
	p.logger.Debug("starting poll tick")

	obs, fetchErr := p.fetchWithRetry(ctx)

	switch {
	case fetchErr == nil:
		if err := p.record(ctx, obs); err != nil {
			return err
		}
	case ctx.Err() != nil:
		// Shutdown mid-cycle leaves state untouched.
		return ctx.Err()
	case fetch.IsInvalid(fetchErr):
		// Bad payloads are logged and skipped; staleness catches a
		// sustained stream of them.
		p.logger.Warn("discarding invalid upstream data", "error", fetchErr)
	}

	history, err := p.store.History(ctx, p.name, 0)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}

	now := time.Now()
	var next storage.AlertState
	if fetchErr != nil && !fetch.IsInvalid(fetchErr) {
		p.logger.Warn("fetch attempts exhausted", "error", fetchErr)
		next = rules.Missed(now, history)
	} else {
		next = rules.Evaluate(now, history, p.ruleset)
	}

	if err := p.applyState(ctx, next, now); err != nil {
		return err
	}

	p.observeHistory(now, history)
	p.metrics.ObserveCycle(p.name, time.Since(start).Seconds())
	p.logger.Debug("poll tick complete", "total_ms", time.Since(start).Milliseconds())

	return nil
}

// fetchWithRetry fetches one observation, retrying transient failures
// with exponential backoff. Invalid data fails immediately.
func (p *Poller) fetchWithRetry(ctx context.Context) (storage.Observation, error) {
	var lastErr error

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
		obs, err := p.fetcher.Fetch(attemptCtx)
		cancel()

		if err == nil {
			p.metrics.RecordFetch(p.name, "success")
			return obs, nil
		}
		if ctx.Err() != nil {
			return storage.Observation{}, ctx.Err()
		}
		if fetch.IsInvalid(err) {
			p.metrics.RecordFetch(p.name, "invalid")
			return storage.Observation{}, err
		}

		p.metrics.RecordFetch(p.name, "transient")
		lastErr = err

		if attempt < p.maxAttempts {
			delay := p.backoff.Delay(attempt)
			p.metrics.RecordRetry(p.name)
			p.logger.Debug("retrying fetch",
				"attempt", attempt,
				"delay", delay,
				"error", err,
			)
			select {
			case <-ctx.Done():
				return storage.Observation{}, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return storage.Observation{}, lastErr
}

// record appends an observation, tolerating duplicates from upstreams
// that have not published a fresh value yet.
func (p *Poller) record(ctx context.Context, obs storage.Observation) error {
	err := p.store.Record(ctx, p.name, obs)
	if err == nil {
		p.logger.Debug("recorded observation", "value", obs.Value, "ts", obs.Timestamp)
		return nil
	}
	if errors.Is(err, storage.ErrDuplicateObservation) {
		p.logger.Debug("skipping duplicate observation", "ts", obs.Timestamp)
		return nil
	}
	return fmt.Errorf("record: %w", err)
}

// applyState merges the freshly evaluated state with the stored one and
// dispatches an alert when the severity changed.
func (p *Poller) applyState(ctx context.Context, next storage.AlertState, now time.Time) error {
	prev, found, err := p.store.State(ctx, p.name)
	if err != nil {
		return fmt.Errorf("state: %w", err)
	}

	var prevPtr *storage.AlertState
	if found {
		prevPtr = &prev
	}

	merged, changed := rules.Transition(prevPtr, next, now)
	if err := p.store.SetState(ctx, p.name, merged); err != nil {
		return fmt.Errorf("set state: %w", err)
	}

	p.metrics.SetSeverity(p.name, merged.Severity)
	p.metrics.SetLastValue(p.name, merged.LastValue)

	if changed {
		from := storage.SeverityNominal
		if found {
			from = prev.Severity
		}
		p.logger.Info("severity transition",
			"from", from,
			"to", merged.Severity,
			"value", merged.LastValue,
		)
		p.metrics.RecordTransition(p.name, from, merged.Severity)
		p.dispatcher.Notify(ctx, alert.NewEvent(p.name, from, merged.Severity, merged.LastValue, now))
	}

	return nil
}

func (p *Poller) observeHistory(now time.Time, history []storage.Observation) {
	if len(history) == 0 {
		return
	}
	newest := history[len(history)-1]
	p.metrics.SetObservationAge(p.name, now.Sub(newest.Timestamp).Seconds())
}

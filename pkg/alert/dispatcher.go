// Package alert delivers severity transitions to configured sinks.
package alert

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hargaemas/gold-monitor/pkg/storage"
)

// Event describes one severity transition.
type Event struct {
	ID      string           `json:"id"`
	Monitor string           `json:"monitor"`
	From    storage.Severity `json:"from"`
	To      storage.Severity `json:"to"`
	Value   float64          `json:"value"`
	At      time.Time        `json:"at"`
}

// NewEvent builds an Event with a fresh ID.
func NewEvent(monitor string, from, to storage.Severity, value float64, at time.Time) Event {
	return Event{
		ID:      uuid.NewString(),
		Monitor: monitor,
		From:    from,
		To:      to,
		Value:   value,
		At:      at,
	}
}

// Sink delivers events to one notification channel.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, ev Event) error
}

// Dispatcher fans a transition out to all sinks. A failed delivery is
// retried at most once and then dropped; sustained sink outages must never
// build a backlog across poll cycles.
type Dispatcher struct {
	sinks  []Sink
	logger *slog.Logger

	// FailureHook is invoked after a delivery fails its retry. Used to
	// surface dispatch-failure metrics without coupling to the registry.
	FailureHook func(monitor, sink string)
}

// NewDispatcher creates a dispatcher over the given sinks.
func NewDispatcher(logger *slog.Logger, sinks ...Sink) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{sinks: sinks, logger: logger}
}

// Notify delivers ev to every sink. The caller invokes it only on genuine
// transitions; Notify itself does no deduplication.
func (d *Dispatcher) Notify(ctx context.Context, ev Event) {
	for _, sink := range d.sinks {
		if err := d.deliver(ctx, sink, ev); err != nil {
			d.logger.Error("alert delivery failed",
				"sink", sink.Name(),
				"monitor", ev.Monitor,
				"from", ev.From,
				"to", ev.To,
				"error", err,
			)
			if d.FailureHook != nil {
				d.FailureHook(ev.Monitor, sink.Name())
			}
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, sink Sink, ev Event) error {
	err := sink.Deliver(ctx, ev)
	if err == nil {
		return nil
	}
	// A retry cannot succeed once the context is gone.
	if ctx.Err() != nil {
		return err
	}

	d.logger.Warn("alert delivery failed, retrying once",
		"sink", sink.Name(),
		"monitor", ev.Monitor,
		"error", err,
	)
	return sink.Deliver(ctx, ev)
}

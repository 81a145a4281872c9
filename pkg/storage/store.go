// Package storage holds the monitor state shared between the poll loop and
// the HTTP API: a bounded ring of observations per monitored quantity plus
// the current alert state.
package storage

import (
	"context"
	"errors"
	"time"
)

// Severity is the alert level of a monitored quantity.
type Severity string

const (
	SeverityNominal  Severity = "nominal"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
	SeverityUnknown  Severity = "unknown"
)

// Observation is a single timestamped sample. Immutable once recorded.
type Observation struct {
	Timestamp time.Time `json:"ts"`
	Value     float64   `json:"value"`
	Source    string    `json:"source"`
}

// AlertState is the current alert level for one monitor. Since is the time
// the current severity was entered, LastValue the most recent known sample.
type AlertState struct {
	Severity  Severity  `json:"severity"`
	Since     time.Time `json:"since"`
	LastValue float64   `json:"last_value"`
	Stale     bool      `json:"stale"`
}

var (
	// ErrUnknownMonitor is returned for a monitor name that was never registered.
	ErrUnknownMonitor = errors.New("unknown monitor")

	// ErrDuplicateObservation is returned when an observation is not newer
	// than the most recent one already recorded. Upstream feeds replay the
	// same tick; the store keeps timestamps strictly increasing.
	ErrDuplicateObservation = errors.New("observation not newer than head")
)

// Store is the shared state accessed by the poller (writes) and the HTTP
// handlers (reads). Implementations must guarantee that readers never see a
// partially applied write.
type Store interface {
	// Register declares a monitor and its history retention. Must be called
	// before Record/History/State for that name.
	Register(name string, retention int) error

	// Record appends an observation, evicting the oldest once retention is
	// exceeded. Returns ErrDuplicateObservation when obs is not strictly
	// newer than the current head.
	Record(ctx context.Context, monitor string, obs Observation) error

	// History returns observations most-recent-last. limit <= 0 returns the
	// full retained window.
	History(ctx context.Context, monitor string, limit int) ([]Observation, error)

	// State returns the current alert state; found is false before the first
	// evaluation.
	State(ctx context.Context, monitor string) (AlertState, bool, error)

	// SetState replaces the current alert state.
	SetState(ctx context.Context, monitor string, state AlertState) error

	// Monitors lists registered monitor names.
	Monitors() []string
}

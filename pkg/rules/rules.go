// Package rules implements the alert evaluation core: pure functions that
// map an observation history and a threshold set to an alert state, and
// detect transitions between consecutive evaluations.
package rules

import (
	"fmt"
	"time"

	"github.com/hargaemas/gold-monitor/pkg/storage"
)

// Thresholds are ordered severity boundaries. A value on a boundary
// classifies into the higher band: v >= Critical is critical, v >= Warning
// is warning, anything below is nominal.
type Thresholds struct {
	Warning  float64
	Critical float64
}

// Validate checks that the boundaries are ordered.
func (t Thresholds) Validate() error {
	if t.Warning >= t.Critical {
		return fmt.Errorf("thresholds: warning (%v) must be below critical (%v)", t.Warning, t.Critical)
	}
	return nil
}

// Classify maps a value to its severity band.
func (t Thresholds) Classify(v float64) storage.Severity {
	switch {
	case v >= t.Critical:
		return storage.SeverityCritical
	case v >= t.Warning:
		return storage.SeverityWarning
	default:
		return storage.SeverityNominal
	}
}

// Ruleset is the full evaluation configuration for one monitor.
type Ruleset struct {
	Thresholds Thresholds

	// StaleAfter forces severity to unknown when the newest observation is
	// older than this. Zero disables the staleness check.
	StaleAfter time.Duration
}

// Evaluate derives the alert state from the retained history. It is
// deterministic: the same now, history and ruleset always produce the same
// state. Since is set to now; Transition fixes it up against the previous
// state.
func Evaluate(now time.Time, history []storage.Observation, rs Ruleset) storage.AlertState {
	if len(history) == 0 {
		return storage.AlertState{
			Severity: storage.SeverityUnknown,
			Since:    now,
			Stale:    true,
		}
	}

	latest := history[len(history)-1]

	if rs.StaleAfter > 0 && now.Sub(latest.Timestamp) >= rs.StaleAfter {
		return storage.AlertState{
			Severity:  storage.SeverityUnknown,
			Since:     now,
			LastValue: latest.Value,
			Stale:     true,
		}
	}

	return storage.AlertState{
		Severity:  rs.Thresholds.Classify(latest.Value),
		Since:     now,
		LastValue: latest.Value,
	}
}

// Missed is the state after a poll cycle exhausted its retries: severity is
// unknown regardless of the last known value, which is preserved for
// reporting.
func Missed(now time.Time, history []storage.Observation) storage.AlertState {
	state := storage.AlertState{
		Severity: storage.SeverityUnknown,
		Since:    now,
		Stale:    true,
	}
	if len(history) > 0 {
		state.LastValue = history[len(history)-1].Value
	}
	return state
}

// Transition reconciles a freshly evaluated state against the previous one.
// It returns the state to store and whether the severity changed. A nil prev
// means no evaluation has happened yet; the baseline severity is nominal, so
// a first evaluation only transitions when it lands outside the nominal band.
func Transition(prev *storage.AlertState, next storage.AlertState, now time.Time) (storage.AlertState, bool) {
	base := storage.SeverityNominal
	if prev != nil {
		base = prev.Severity
	}

	if next.Severity == base {
		if prev != nil {
			next.Since = prev.Since
		} else {
			next.Since = now
		}
		return next, false
	}

	next.Since = now
	return next, true
}

// Package backoff provides the exponential delay schedule used between
// fetch retries.
package backoff

import (
	"math/rand"
	"time"
)

// Backoff computes exponentially growing delays with a cap and a small
// random jitter to avoid synchronized retries.
type Backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

// New returns a doubling backoff with 10% jitter.
func New(initial, max time.Duration) *Backoff {
	return &Backoff{
		Initial:    initial,
		Max:        max,
		Multiplier: 2.0,
		Jitter:     0.1,
	}
}

// Delay returns the wait before the given retry attempt. Attempt 1 is the
// first retry.
func (b *Backoff) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return b.Initial
	}

	delay := float64(b.Initial)
	for i := 1; i < attempt; i++ {
		delay *= b.Multiplier
		if delay >= float64(b.Max) {
			delay = float64(b.Max)
			break
		}
	}

	if b.Jitter > 0 {
		delay += delay * b.Jitter * (2*rand.Float64() - 1)
	}

	if delay > float64(b.Max) {
		delay = float64(b.Max)
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

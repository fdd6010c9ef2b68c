// Package backoff implements the delay policy for retried page fetches.
package backoff

import "time"

// Kind selects the delay schedule for a retry.
type Kind string

const (
	// KindRateLimit is the schedule after HTTP 429 responses.
	KindRateLimit Kind = "rate_limit"

	// KindServer is the schedule after unexpected HTTP statuses.
	KindServer Kind = "server"

	// KindGeneric is the schedule after connection-level failures.
	KindGeneric Kind = "generic"
)

// Policy computes retry delays. It is a pure value: Delay has no side
// effects and performs no I/O, so policies are safe to share across
// goroutines.
type Policy struct {
	// Unit is the base duration the exponential schedule scales from.
	// Zero or negative falls back to one second.
	Unit time.Duration

	// Max caps individual delays when > 0.
	Max time.Duration
}

// Default returns the production policy: whole-second delays, uncapped.
func Default() Policy {
	return Policy{Unit: time.Second}
}

// Delay returns the wait before the next attempt after a failed one.
// attempt is zero-based, counting the failed attempt just made: the first
// retry waits Delay(0, kind). Rate-limit delays run five times the
// server/generic schedule (5 * 2^attempt units versus 2^attempt units),
// giving the remote end more room to recover from throttling.
func (p Policy) Delay(attempt int, kind Kind) time.Duration {
	unit := p.Unit
	if unit <= 0 {
		unit = time.Second
	}

	if attempt < 0 {
		attempt = 0
	}
	// Clamp the shift so the doubling cannot overflow time.Duration.
	if attempt > 30 {
		attempt = 30
	}

	d := time.Duration(1<<uint(attempt)) * unit
	if kind == KindRateLimit {
		d *= 5
	}

	if p.Max > 0 && d > p.Max {
		d = p.Max
	}
	return d
}

// Package ratelimit bounds the number of page fetches in flight.
// The FPL API publishes no rate-limit headers, so admission control is a
// fixed-capacity gate.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for gate operations.
var (
	fplInFlightRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fpl_inflight_requests",
		Help: "Number of page fetches currently holding a gate slot",
	})

	fplGateWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fpl_gate_wait_seconds",
		Help:    "Time spent waiting to acquire a gate slot",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30},
	})
)

// Gate is a fixed-capacity admission gate for concurrent page fetches.
// At most Capacity callers can be between Acquire and Release at any
// instant; everyone else waits their turn.
type Gate struct {
	slots chan struct{}
}

// NewGate creates a gate with the given capacity. Capacities below one
// are raised to one so the gate can always make progress.
func NewGate(capacity int) *Gate {
	if capacity < 1 {
		capacity = 1
	}
	return &Gate{slots: make(chan struct{}, capacity)}
}

// Acquire blocks until a slot is free or ctx is done. On success the
// caller must pair it with exactly one Release.
func (g *Gate) Acquire(ctx context.Context) error {
	// Never hand out a slot to a caller that is already cancelled.
	select {
	case <-ctx.Done():
		return fmt.Errorf("acquire gate slot: %w", ctx.Err())
	default:
	}

	start := time.Now()
	select {
	case g.slots <- struct{}{}:
		fplGateWaitSeconds.Observe(time.Since(start).Seconds())
		fplInFlightRequests.Inc()
		return nil
	case <-ctx.Done():
		return fmt.Errorf("acquire gate slot: %w", ctx.Err())
	}
}

// Release returns a slot to the gate. Calling Release without a matching
// Acquire panics: slot accounting is broken and the capacity bound can no
// longer be trusted.
func (g *Gate) Release() {
	select {
	case <-g.slots:
		fplInFlightRequests.Dec()
	default:
		panic("ratelimit: Release without matching Acquire")
	}
}

// InFlight returns the number of slots currently held.
func (g *Gate) InFlight() int {
	return len(g.slots)
}

// Capacity returns the maximum number of concurrently held slots.
func (g *Gate) Capacity() int {
	return cap(g.slots)
}

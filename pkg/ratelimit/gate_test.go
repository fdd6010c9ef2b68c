package ratelimit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewGate_MinimumCapacity(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		want     int
	}{
		{"normal capacity", 50, 50},
		{"capacity of one", 1, 1},
		{"zero raised to one", 0, 1},
		{"negative raised to one", -3, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGate(tt.capacity)
			if g.Capacity() != tt.want {
				t.Errorf("Capacity() = %d, want %d", g.Capacity(), tt.want)
			}
			if g.InFlight() != 0 {
				t.Errorf("InFlight() = %d, want 0", g.InFlight())
			}
		})
	}
}

func TestGate_AcquireRelease(t *testing.T) {
	ctx := context.Background()
	g := NewGate(2)

	if err := g.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if g.InFlight() != 1 {
		t.Errorf("InFlight() = %d, want 1", g.InFlight())
	}

	if err := g.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if g.InFlight() != 2 {
		t.Errorf("InFlight() = %d, want 2", g.InFlight())
	}

	g.Release()
	if g.InFlight() != 1 {
		t.Errorf("InFlight() after Release = %d, want 1", g.InFlight())
	}

	g.Release()
	if g.InFlight() != 0 {
		t.Errorf("InFlight() after Release = %d, want 0", g.InFlight())
	}
}

func TestGate_BlocksAtCapacity(t *testing.T) {
	g := NewGate(1)

	if err := g.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	// Second acquire must wait until the slot frees.
	acquired := make(chan error, 1)
	go func() {
		acquired <- g.Acquire(context.Background())
	}()

	select {
	case err := <-acquired:
		t.Fatalf("Acquire() returned %v before slot was released", err)
	case <-time.After(50 * time.Millisecond):
	}

	g.Release()

	select {
	case err := <-acquired:
		if err != nil {
			t.Errorf("Acquire() after release error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Acquire() did not complete after slot was released")
	}

	g.Release()
}

func TestGate_AcquireCancelledWhileWaiting(t *testing.T) {
	g := NewGate(1)

	if err := g.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer g.Release()

	ctx, cancel := context.WithCancel(context.Background())
	acquired := make(chan error, 1)
	go func() {
		acquired <- g.Acquire(ctx)
	}()

	cancel()

	select {
	case err := <-acquired:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Acquire() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Acquire() did not return after cancellation")
	}

	if g.InFlight() != 1 {
		t.Errorf("InFlight() = %d, want 1 (cancelled waiter must not hold a slot)", g.InFlight())
	}
}

func TestGate_AcquireAlreadyCancelled(t *testing.T) {
	g := NewGate(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := g.Acquire(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire() error = %v, want context.Canceled", err)
	}
	if g.InFlight() != 0 {
		t.Errorf("InFlight() = %d, want 0", g.InFlight())
	}
}

func TestGate_CapacityNeverExceeded(t *testing.T) {
	const (
		capacity = 3
		workers  = 30
	)

	g := NewGate(capacity)
	ctx := context.Background()

	var current, peak atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			if err := g.Acquire(ctx); err != nil {
				t.Errorf("Acquire() error = %v", err)
				return
			}
			defer g.Release()

			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			current.Add(-1)
		}()
	}

	wg.Wait()

	if p := peak.Load(); p > capacity {
		t.Errorf("peak concurrency = %d, want <= %d", p, capacity)
	}
	if g.InFlight() != 0 {
		t.Errorf("InFlight() after all workers done = %d, want 0", g.InFlight())
	}
}

func TestGate_ReleaseWithoutAcquirePanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Release() without Acquire did not panic")
		}
	}()

	NewGate(1).Release()
}

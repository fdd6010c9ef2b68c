package backoff

import (
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	p := Default()

	if p.Unit != time.Second {
		t.Errorf("Unit = %v, want 1s", p.Unit)
	}
	if p.Max != 0 {
		t.Errorf("Max = %v, want 0 (uncapped)", p.Max)
	}
}

func TestDelay_Schedules(t *testing.T) {
	p := Policy{Unit: time.Millisecond}

	tests := []struct {
		name    string
		attempt int
		kind    Kind
		want    time.Duration
	}{
		{"rate limit first retry", 0, KindRateLimit, 5 * time.Millisecond},
		{"rate limit second retry", 1, KindRateLimit, 10 * time.Millisecond},
		{"rate limit third retry", 2, KindRateLimit, 20 * time.Millisecond},
		{"rate limit fourth retry", 3, KindRateLimit, 40 * time.Millisecond},
		{"server first retry", 0, KindServer, 1 * time.Millisecond},
		{"server second retry", 1, KindServer, 2 * time.Millisecond},
		{"server third retry", 2, KindServer, 4 * time.Millisecond},
		{"server fourth retry", 3, KindServer, 8 * time.Millisecond},
		{"generic first retry", 0, KindGeneric, 1 * time.Millisecond},
		{"generic second retry", 1, KindGeneric, 2 * time.Millisecond},
		{"generic third retry", 2, KindGeneric, 4 * time.Millisecond},
		{"negative attempt treated as zero", -1, KindServer, 1 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Delay(tt.attempt, tt.kind)
			if got != tt.want {
				t.Errorf("Delay(%d, %s) = %v, want %v", tt.attempt, tt.kind, got, tt.want)
			}
		})
	}
}

func TestDelay_RateLimitIsFiveTimesServer(t *testing.T) {
	p := Policy{Unit: time.Millisecond}

	for attempt := 0; attempt < 5; attempt++ {
		rl := p.Delay(attempt, KindRateLimit)
		srv := p.Delay(attempt, KindServer)
		if rl != 5*srv {
			t.Errorf("attempt %d: rate limit delay %v, want 5x server delay %v", attempt, rl, srv)
		}
	}
}

func TestDelay_StrictlyIncreasing(t *testing.T) {
	p := Policy{Unit: time.Millisecond}

	for _, kind := range []Kind{KindRateLimit, KindServer, KindGeneric} {
		prev := time.Duration(0)
		for attempt := 0; attempt < 10; attempt++ {
			d := p.Delay(attempt, kind)
			if d <= prev {
				t.Errorf("%s: Delay(%d) = %v, not greater than Delay(%d) = %v", kind, attempt, d, attempt-1, prev)
			}
			prev = d
		}
	}
}

func TestDelay_DefaultUnitSeconds(t *testing.T) {
	// A zero-value policy must still produce the second-based schedule.
	var p Policy

	if got := p.Delay(0, KindRateLimit); got != 5*time.Second {
		t.Errorf("Delay(0, rate_limit) = %v, want 5s", got)
	}
	if got := p.Delay(2, KindServer); got != 4*time.Second {
		t.Errorf("Delay(2, server) = %v, want 4s", got)
	}
}

func TestDelay_MaxCap(t *testing.T) {
	p := Policy{Unit: time.Second, Max: 10 * time.Second}

	if got := p.Delay(6, KindServer); got != 10*time.Second {
		t.Errorf("Delay(6, server) = %v, want capped at 10s", got)
	}
	if got := p.Delay(1, KindRateLimit); got != 10*time.Second {
		t.Errorf("Delay(1, rate_limit) = %v, want capped at 10s", got)
	}
	// Below the cap the schedule is untouched.
	if got := p.Delay(1, KindServer); got != 2*time.Second {
		t.Errorf("Delay(1, server) = %v, want 2s", got)
	}
}

func TestDelay_LargeAttemptDoesNotOverflow(t *testing.T) {
	p := Policy{Unit: time.Second}

	d := p.Delay(500, KindServer)
	if d <= 0 {
		t.Errorf("Delay(500, server) = %v, want positive duration", d)
	}
}

// Package fetcher retrieves single standings pages with gated concurrency
// and class-aware retries.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/dylan-130/FPLscraper/pkg/backoff"
	"github.com/dylan-130/FPLscraper/pkg/logging"
	"github.com/dylan-130/FPLscraper/pkg/ratelimit"
	"github.com/dylan-130/FPLscraper/pkg/standings"
)

// Prometheus metrics for fetch operations.
var (
	fplRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fpl_requests_total",
		Help: "Total standings requests by HTTP status",
	}, []string{"status"})

	fplRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fpl_request_duration_seconds",
		Help:    "Standings request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	})

	fplRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fpl_retries_total",
		Help: "Total retry attempts by failure class",
	}, []string{"class"})

	fplRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fpl_retry_backoff_seconds",
		Help:    "Backoff duration before retries by failure class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"class"})

	fplRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fpl_retry_exhausted_total",
		Help: "Pages that exhausted all fetch attempts by failure class",
	}, []string{"class"})
)

// Config holds the fetcher configuration.
type Config struct {
	// BaseURL is the API root, e.g. "https://fantasy.premierleague.com".
	BaseURL string

	// LeagueID selects the classic league whose standings are fetched.
	LeagueID int

	// UserAgent is sent on every request.
	UserAgent string

	// MaxAttempts caps fetch attempts per page, including the first.
	MaxAttempts int

	// RequestTimeout bounds a single HTTP attempt.
	RequestTimeout time.Duration

	// Backoff is the delay policy between attempts.
	Backoff backoff.Policy
}

// DefaultConfig returns the production fetcher configuration for a league.
func DefaultConfig(leagueID int) Config {
	return Config{
		BaseURL:        "https://fantasy.premierleague.com",
		LeagueID:       leagueID,
		UserAgent:      "FPLscraper/1.0",
		MaxAttempts:    5,
		RequestTimeout: 30 * time.Second,
		Backoff:        backoff.Default(),
	}
}

// Fetcher retrieves standings pages. It is safe for concurrent use; every
// HTTP attempt holds one gate slot, released before any backoff sleep.
type Fetcher struct {
	httpClient *http.Client
	gate       *ratelimit.Gate
	config     Config
	logger     zerolog.Logger
}

// New creates a fetcher gated by the given admission gate.
func New(cfg Config, gate *ratelimit.Gate) (*Fetcher, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.LeagueID <= 0 {
		return nil, fmt.Errorf("league ID must be positive (got %d)", cfg.LeagueID)
	}
	if gate == nil {
		return nil, fmt.Errorf("gate is required")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	return &Fetcher{
		// Per-attempt deadlines come from the request context.
		httpClient: &http.Client{},
		gate:       gate,
		config:     cfg,
		logger:     logging.NewLogger("fetcher"),
	}, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (f *Fetcher) SetHTTPClient(client *http.Client) {
	f.httpClient = client
}

// pageURL builds the standings URL for a page.
func (f *Fetcher) pageURL(page int) string {
	return fmt.Sprintf("%s/api/leagues-classic/%d/standings/?page_standings=%d",
		f.config.BaseURL, f.config.LeagueID, page)
}

// FetchPage fetches one standings page, retrying failed attempts on the
// backoff schedule for their failure class.
//
// A nil error means the returned records are complete. Otherwise the error
// is ctx.Err() when the run was cancelled, a *FetchError for a terminal
// malformed page, or wraps ErrRetryExhausted once every attempt failed.
func (f *Fetcher) FetchPage(ctx context.Context, page int) ([]standings.Record, error) {
	var lastErr *FetchError

	for attempt := 0; attempt < f.config.MaxAttempts; attempt++ {
		records, err := f.fetchOnce(ctx, page, attempt)
		if err == nil {
			if attempt > 0 {
				f.logger.Info().
					Int("page", page).
					Int("attempt", attempt+1).
					Msg("Page fetched after retry")
			}
			return records, nil
		}

		// Run-wide cancellation is abandonment, not a page failure.
		if ctx.Err() != nil {
			f.logger.Debug().
				Int("page", page).
				Int("attempt", attempt+1).
				Msg("Fetch abandoned (context done)")
			return nil, ctx.Err()
		}

		var fe *FetchError
		if !errors.As(err, &fe) {
			return nil, err
		}
		lastErr = fe

		if !shouldRetry(fe.Class) {
			f.logger.Warn().
				Int("page", page).
				Int("attempt", attempt+1).
				Str("class", string(fe.Class)).
				Int("status", fe.StatusCode).
				Msg("Page failed terminally")
			return nil, fe
		}

		if attempt+1 >= f.config.MaxAttempts {
			break
		}

		delay := f.config.Backoff.Delay(attempt, backoffKind(fe.Class))
		fplRetriesTotal.WithLabelValues(string(fe.Class)).Inc()
		fplRetryBackoffSeconds.WithLabelValues(string(fe.Class)).Observe(delay.Seconds())

		f.logger.Warn().
			Int("page", page).
			Int("attempt", attempt+1).
			Int("max_attempts", f.config.MaxAttempts).
			Str("class", string(fe.Class)).
			Int("status", fe.StatusCode).
			Dur("backoff", delay).
			Msg("Retrying page after backoff")

		select {
		case <-ctx.Done():
			f.logger.Debug().
				Int("page", page).
				Int("attempt", attempt+1).
				Msg("Fetch abandoned during backoff")
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	fplRetryExhaustedTotal.WithLabelValues(string(lastErr.Class)).Inc()
	f.logger.Error().
		Int("page", page).
		Int("max_attempts", f.config.MaxAttempts).
		Str("class", string(lastErr.Class)).
		Err(lastErr).
		Msg("All fetch attempts failed")

	return nil, fmt.Errorf("%w for page %d after %d attempts: %v",
		ErrRetryExhausted, page, f.config.MaxAttempts, lastErr)
}

// fetchOnce performs one gated HTTP attempt for page.
func (f *Fetcher) fetchOnce(ctx context.Context, page, attempt int) ([]standings.Record, error) {
	if err := f.gate.Acquire(ctx); err != nil {
		return nil, err
	}
	defer f.gate.Release()

	f.logger.Debug().
		Int("page", page).
		Int("attempt", attempt+1).
		Msg("Fetching standings page")

	reqCtx, cancel := context.WithTimeout(ctx, f.config.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, f.pageURL(page), nil)
	if err != nil {
		return nil, &FetchError{Page: page, Class: ClassNetwork, Err: err}
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	fplRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		fplRequestsTotal.WithLabelValues("network_error").Inc()
		return nil, &FetchError{Page: page, Class: ClassNetwork, Err: err}
	}
	defer resp.Body.Close()

	fplRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &FetchError{Page: page, StatusCode: resp.StatusCode, Class: ClassRateLimit}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		class := ClassClient
		if resp.StatusCode >= 500 {
			class = ClassServer
		}
		return nil, &FetchError{Page: page, StatusCode: resp.StatusCode, Class: class}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &FetchError{Page: page, StatusCode: resp.StatusCode, Class: ClassNetwork, Err: err}
	}

	records, err := standings.ParsePage(body)
	if err != nil {
		if errors.Is(err, standings.ErrMalformed) {
			return nil, &FetchError{Page: page, StatusCode: resp.StatusCode, Class: ClassMalformed, Err: err}
		}
		// Truncated or non-JSON 2xx body: treat like a connection fault.
		return nil, &FetchError{Page: page, StatusCode: resp.StatusCode, Class: ClassNetwork, Err: err}
	}
	return records, nil
}

// Package scraper orchestrates a full standings harvest: one task per page,
// gated fetching, record persistence, and the failed-pages report.
package scraper

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/dylan-130/FPLscraper/pkg/journal"
	"github.com/dylan-130/FPLscraper/pkg/ledger"
	"github.com/dylan-130/FPLscraper/pkg/logging"
	"github.com/dylan-130/FPLscraper/pkg/sink"
	"github.com/dylan-130/FPLscraper/pkg/standings"
)

// Prometheus metrics for page outcomes.
var (
	fplPagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fpl_pages_total",
		Help: "Pages by final outcome (fetched, failed, skipped, abandoned)",
	}, []string{"outcome"})

	fplRunDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fpl_run_duration_seconds",
		Help:    "Harvest run duration in seconds",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	})
)

// PageFetcher is the interface the scraper uses to fetch a single page.
type PageFetcher interface {
	// FetchPage fetches one standings page, retrying internally as needed.
	FetchPage(ctx context.Context, page int) ([]standings.Record, error)
}

// Config holds scraper configuration.
type Config struct {
	// TotalPages is the number of pages to harvest, starting at page 1.
	TotalPages int

	// ProgressInterval logs progress every N completed pages (0 disables).
	ProgressInterval int

	// FailureReportPath receives the failed-pages report (empty disables).
	FailureReportPath string

	// Journal, when set, skips pages completed by earlier runs and records
	// new completions for the next one.
	Journal *journal.Journal
}

// Summary describes a finished run.
type Summary struct {
	RunID      string
	TotalPages int
	Succeeded  int
	Failed     int
	Skipped    int
	Elapsed    time.Duration
}

// Scraper drives all page fetches for one league.
type Scraper struct {
	fetcher PageFetcher
	sink    *sink.Writer
	ledger  *ledger.Ledger
	config  Config
	logger  zerolog.Logger
}

// New creates a scraper writing records to w.
func New(config Config, fetcher PageFetcher, w *sink.Writer) (*Scraper, error) {
	if config.TotalPages <= 0 {
		return nil, fmt.Errorf("total pages must be positive (got %d)", config.TotalPages)
	}
	if fetcher == nil {
		return nil, fmt.Errorf("page fetcher is required")
	}
	if w == nil {
		return nil, fmt.Errorf("sink is required")
	}

	return &Scraper{
		fetcher: fetcher,
		sink:    w,
		ledger:  ledger.New(),
		config:  config,
		logger:  logging.NewLogger("scraper"),
	}, nil
}

// Run harvests every page and blocks until all tasks settle. It always
// returns a Summary and, when configured, writes the failure report, even
// on cancellation. The returned error reports cancellation or a failed
// report write, never individual page failures; those are counted in the
// Summary and listed in the report.
func (s *Scraper) Run(ctx context.Context) (Summary, error) {
	runID := uuid.NewString()
	logger := s.logger.With().Str("run_id", runID).Logger()
	start := time.Now()

	done := s.loadJournal(ctx, logger)

	logger.Info().
		Int("total_pages", s.config.TotalPages).
		Int("previously_completed", len(done)).
		Msg("Starting standings harvest")

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int64
		failed    atomic.Int64
		completed atomic.Int64
	)
	skipped := 0

	// Every page gets its task up front; the rate gate inside the fetcher
	// decides when each one actually runs.
	for page := 1; page <= s.config.TotalPages; page++ {
		if _, ok := done[page]; ok {
			skipped++
			fplPagesTotal.WithLabelValues("skipped").Inc()
			continue
		}

		wg.Add(1)
		go func(page int) {
			defer wg.Done()
			s.fetchTask(ctx, logger, page, &succeeded, &failed, &completed)
		}(page)
	}

	logger.Info().
		Int("tasks", s.config.TotalPages-skipped).
		Int("skipped", skipped).
		Msg("All fetch tasks scheduled")

	wg.Wait()

	summary := Summary{
		RunID:      runID,
		TotalPages: s.config.TotalPages,
		Succeeded:  int(succeeded.Load()),
		Failed:     int(failed.Load()),
		Skipped:    skipped,
		Elapsed:    time.Since(start),
	}
	fplRunDurationSeconds.Observe(summary.Elapsed.Seconds())

	if err := s.writeReport(logger); err != nil {
		return summary, err
	}

	s.logSummary(logger, summary)

	if ctx.Err() != nil {
		return summary, ctx.Err()
	}
	return summary, nil
}

// fetchTask runs the full lifecycle of one page. A panic in the fetch path
// marks the page failed without disturbing sibling tasks.
func (s *Scraper) fetchTask(ctx context.Context, logger zerolog.Logger, page int, succeeded, failed, completed *atomic.Int64) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Int("page", page).
				Interface("panic", r).
				Msg("Fetch task panicked")
			s.ledger.Record(page)
			failed.Add(1)
			fplPagesTotal.WithLabelValues("failed").Inc()
		}
	}()

	records, err := s.fetcher.FetchPage(ctx, page)

	switch {
	case err == nil:
		if werr := s.sink.Write(records); werr != nil {
			logger.Error().
				Err(werr).
				Int("page", page).
				Msg("Failed to persist page records")
			s.ledger.Record(page)
			failed.Add(1)
			fplPagesTotal.WithLabelValues("failed").Inc()
			break
		}
		succeeded.Add(1)
		fplPagesTotal.WithLabelValues("fetched").Inc()
		s.markDone(ctx, logger, page)
		logger.Debug().
			Int("page", page).
			Int("records", len(records)).
			Msg("Page persisted")

	case ctx.Err() != nil:
		// Abandoned by shutdown, not failed: the page was never given its
		// five attempts, so it stays out of the report.
		fplPagesTotal.WithLabelValues("abandoned").Inc()
		logger.Debug().
			Int("page", page).
			Msg("Page abandoned")

	default:
		s.ledger.Record(page)
		failed.Add(1)
		fplPagesTotal.WithLabelValues("failed").Inc()
		logger.Error().
			Err(err).
			Int("page", page).
			Msg("Page failed permanently")
	}

	n := completed.Add(1)
	if s.config.ProgressInterval > 0 && n%int64(s.config.ProgressInterval) == 0 {
		logger.Info().
			Int64("completed", n).
			Int("total", s.config.TotalPages).
			Float64("progress_pct", float64(n)/float64(s.config.TotalPages)*100).
			Msg("Harvest progress")
	}
}

// loadJournal returns pages completed by earlier runs. A load failure
// degrades to a full run rather than aborting.
func (s *Scraper) loadJournal(ctx context.Context, logger zerolog.Logger) map[int]struct{} {
	if s.config.Journal == nil {
		return nil
	}

	done, err := s.config.Journal.Completed(ctx)
	if err != nil {
		logger.Warn().
			Err(err).
			Msg("Journal unavailable, harvesting all pages")
		return nil
	}
	return done
}

// markDone records completion in the journal, best effort.
func (s *Scraper) markDone(ctx context.Context, logger zerolog.Logger, page int) {
	if s.config.Journal == nil {
		return
	}
	if err := s.config.Journal.MarkDone(ctx, page); err != nil {
		logger.Warn().
			Err(err).
			Int("page", page).
			Msg("Failed to journal completed page")
	}
}

// writeReport persists the failed-pages report if a path is configured.
func (s *Scraper) writeReport(logger zerolog.Logger) error {
	if s.config.FailureReportPath == "" {
		return nil
	}
	if err := s.ledger.WriteReport(s.config.FailureReportPath); err != nil {
		logger.Error().
			Err(err).
			Str("path", s.config.FailureReportPath).
			Msg("Failed to write failure report")
		return fmt.Errorf("write failure report: %w", err)
	}
	return nil
}

func (s *Scraper) logSummary(logger zerolog.Logger, summary Summary) {
	event := logger.Info()
	if summary.Failed > 0 {
		event = logger.Warn()
	}
	event.
		Int("total_pages", summary.TotalPages).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Dur("elapsed", summary.Elapsed).
		Msg("Harvest complete")
}

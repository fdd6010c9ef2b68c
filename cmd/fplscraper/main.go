package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/dylan-130/FPLscraper/internal/config"
	"github.com/dylan-130/FPLscraper/pkg/archive"
	"github.com/dylan-130/FPLscraper/pkg/backoff"
	"github.com/dylan-130/FPLscraper/pkg/fetcher"
	"github.com/dylan-130/FPLscraper/pkg/journal"
	"github.com/dylan-130/FPLscraper/pkg/logging"
	"github.com/dylan-130/FPLscraper/pkg/metrics"
	"github.com/dylan-130/FPLscraper/pkg/ratelimit"
	"github.com/dylan-130/FPLscraper/pkg/scraper"
	"github.com/dylan-130/FPLscraper/pkg/sink"
)

func main() {
	cfg := config.MustLoad(os.Getenv("CONFIG_FILE"))

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
		Output: os.Stderr,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown: in-flight pages finish or abandon, the report is
	// still written.
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		sig := <-ch
		logger.Warn().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel()
	}()

	if cfg.MetricsAddr != "" {
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("Serving metrics")
			if err := metrics.StartServer(cfg.MetricsAddr); err != nil {
				logger.Error().Err(err).Msg("Metrics server stopped")
			}
		}()
	}

	jnl := openJournal(ctx, cfg, logger)

	w, err := sink.New(cfg.OutputPath, sink.Options{Gzip: cfg.Compress})
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.OutputPath).Msg("Failed to create output file")
	}

	gate := ratelimit.NewGate(cfg.Concurrency)

	f, err := fetcher.New(fetcher.Config{
		BaseURL:        cfg.BaseURL,
		LeagueID:       cfg.LeagueID,
		UserAgent:      cfg.UserAgent,
		MaxAttempts:    cfg.MaxAttempts,
		RequestTimeout: time.Duration(cfg.RequestTimeout),
		Backoff:        backoff.Default(),
	}, gate)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create fetcher")
	}

	s, err := scraper.New(scraper.Config{
		TotalPages:        cfg.TotalPages,
		ProgressInterval:  cfg.ProgressInterval,
		FailureReportPath: cfg.FailureReportPath,
		Journal:           jnl,
	}, f, w)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create scraper")
	}

	summary, runErr := s.Run(ctx)

	// Close before archiving so the file (and its gzip trailer) is complete.
	if err := w.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close output file")
	}

	if cfg.ArchiveURL != "" {
		archiveArtifacts(cfg, summary.RunID, logger)
	}

	if jnl != nil && runErr == nil && summary.Failed == 0 {
		if err := jnl.Clear(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("Failed to clear journal after clean run")
		} else {
			logger.Info().Msg("Journal cleared after clean run")
		}
	}

	if runErr != nil {
		if ctx.Err() != nil {
			logger.Warn().
				Int("succeeded", summary.Succeeded).
				Msg("Harvest interrupted")
		} else {
			logger.Error().Err(runErr).Msg("Harvest failed")
		}
		os.Exit(1)
	}

	if summary.Failed > 0 {
		logger.Warn().
			Str("report", cfg.FailureReportPath).
			Msg("Some pages failed, see failure report")
	}
}

// openJournal connects the resume journal when Redis is configured. An
// unreachable Redis degrades to a journal-less run.
func openJournal(ctx context.Context, cfg config.Config, logger zerolog.Logger) *journal.Journal {
	if cfg.RedisURL == "" {
		return nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisURL,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Str("redis", cfg.RedisURL).Msg("Redis unreachable, resume journal disabled")
		redisClient.Close()
		return nil
	}

	logger.Info().Str("redis", cfg.RedisURL).Msg("Resume journal enabled")
	return journal.New(redisClient, cfg.LeagueID)
}

// archiveArtifacts uploads the output file and failure report for one run.
// Uploads are best effort and never change the exit code.
func archiveArtifacts(cfg config.Config, runID string, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	uploader, err := archive.NewUploader(ctx, cfg.ArchiveURL)
	if err != nil {
		logger.Error().Err(err).Str("bucket", cfg.ArchiveURL).Msg("Failed to open archive bucket")
		return
	}
	defer uploader.Close()

	paths := []string{cfg.OutputPath}
	if cfg.FailureReportPath != "" {
		paths = append(paths, cfg.FailureReportPath)
	}
	for _, path := range paths {
		if err := uploader.UploadFile(ctx, path, archive.RunKey(runID, path)); err != nil {
			logger.Error().Err(err).Str("path", path).Msg("Failed to archive artifact")
		}
	}
}

// Package journal tracks completed pages across runs in Redis, letting a
// restarted harvest skip work it has already persisted.
package journal

import (
	"context"
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/dylan-130/FPLscraper/pkg/logging"
)

// Prometheus metrics for journal operations.
var (
	fplJournalMarksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fpl_journal_marks_total",
		Help: "Pages marked completed in the journal",
	})

	fplJournalErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fpl_journal_errors_total",
		Help: "Journal operation errors by operation",
	}, []string{"operation"})
)

// Journal records completed page numbers in a Redis set keyed per league.
// The state is shared, so parallel scrapers of the same league cooperate.
type Journal struct {
	redis  *redis.Client
	key    string
	logger zerolog.Logger
}

// New creates a journal for the given league.
func New(redisClient *redis.Client, leagueID int) *Journal {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Journal{
		redis:  redisClient,
		key:    fmt.Sprintf("fpl:scraper:%d:completed", leagueID),
		logger: logging.NewLogger("journal"),
	}
}

// Completed returns the pages already marked done.
func (j *Journal) Completed(ctx context.Context) (map[int]struct{}, error) {
	members, err := j.redis.SMembers(ctx, j.key).Result()
	if err != nil {
		fplJournalErrorsTotal.WithLabelValues("load").Inc()
		return nil, fmt.Errorf("journal load: %w", err)
	}

	done := make(map[int]struct{}, len(members))
	for _, m := range members {
		page, err := strconv.Atoi(m)
		if err != nil {
			// Foreign entry; skip it
			j.logger.Warn().Str("member", m).Msg("Skipping non-numeric journal entry")
			continue
		}
		done[page] = struct{}{}
	}
	return done, nil
}

// MarkDone records a page as completed.
func (j *Journal) MarkDone(ctx context.Context, page int) error {
	if err := j.redis.SAdd(ctx, j.key, strconv.Itoa(page)).Err(); err != nil {
		fplJournalErrorsTotal.WithLabelValues("mark").Inc()
		return fmt.Errorf("journal mark page %d: %w", page, err)
	}
	fplJournalMarksTotal.Inc()
	return nil
}

// Len returns the number of completed pages on record.
func (j *Journal) Len(ctx context.Context) (int64, error) {
	n, err := j.redis.SCard(ctx, j.key).Result()
	if err != nil {
		fplJournalErrorsTotal.WithLabelValues("len").Inc()
		return 0, fmt.Errorf("journal len: %w", err)
	}
	return n, nil
}

// Clear drops the journal, typically after a fully clean run.
func (j *Journal) Clear(ctx context.Context) error {
	if err := j.redis.Del(ctx, j.key).Err(); err != nil {
		fplJournalErrorsTotal.WithLabelValues("clear").Inc()
		return fmt.Errorf("journal clear: %w", err)
	}
	return nil
}

// Key returns the Redis key backing this journal.
func (j *Journal) Key() string {
	return j.key
}

package journal

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
)

// setupRedis connects to a local Redis or skips the test.
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	t.Cleanup(func() {
		client.Close()
	})
	return client
}

// setupJournal creates a journal on a clean key and tears it down after.
func setupJournal(t *testing.T, client *redis.Client, leagueID int) *Journal {
	t.Helper()

	j := New(client, leagueID)
	ctx := context.Background()
	if err := j.Clear(ctx); err != nil {
		t.Fatalf("Clear() setup error: %v", err)
	}
	t.Cleanup(func() {
		j.Clear(context.Background())
	})
	return j
}

func TestNew_NilClientPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("New(nil, 314) did not panic")
		}
	}()
	New(nil, 314)
}

func TestJournal_KeyPerLeague(t *testing.T) {
	client := setupRedis(t)

	a := New(client, 314)
	b := New(client, 999)

	if a.Key() == b.Key() {
		t.Errorf("journals for different leagues share key %q", a.Key())
	}
	if got, want := a.Key(), "fpl:scraper:314:completed"; got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}
}

func TestJournal_MarkAndLoad(t *testing.T) {
	client := setupRedis(t)
	j := setupJournal(t, client, 100314)
	ctx := context.Background()

	for _, page := range []int{1, 2, 5} {
		if err := j.MarkDone(ctx, page); err != nil {
			t.Fatalf("MarkDone(%d) error: %v", page, err)
		}
	}

	done, err := j.Completed(ctx)
	if err != nil {
		t.Fatalf("Completed() error: %v", err)
	}
	if len(done) != 3 {
		t.Errorf("len(Completed()) = %d, want 3", len(done))
	}
	for _, page := range []int{1, 2, 5} {
		if _, ok := done[page]; !ok {
			t.Errorf("Completed() missing page %d", page)
		}
	}
	if _, ok := done[3]; ok {
		t.Error("Completed() contains page 3, which was never marked")
	}
}

func TestJournal_MarkDoneIdempotent(t *testing.T) {
	client := setupRedis(t)
	j := setupJournal(t, client, 100315)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := j.MarkDone(ctx, 7); err != nil {
			t.Fatalf("MarkDone(7) error: %v", err)
		}
	}

	n, err := j.Len(ctx)
	if err != nil {
		t.Fatalf("Len() error: %v", err)
	}
	if n != 1 {
		t.Errorf("Len() = %d after marking same page 3 times, want 1", n)
	}
}

func TestJournal_Clear(t *testing.T) {
	client := setupRedis(t)
	j := setupJournal(t, client, 100316)
	ctx := context.Background()

	if err := j.MarkDone(ctx, 1); err != nil {
		t.Fatalf("MarkDone(1) error: %v", err)
	}
	if err := j.Clear(ctx); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}

	done, err := j.Completed(ctx)
	if err != nil {
		t.Fatalf("Completed() error: %v", err)
	}
	if len(done) != 0 {
		t.Errorf("len(Completed()) = %d after Clear(), want 0", len(done))
	}
}

func TestJournal_CompletedSkipsForeignEntries(t *testing.T) {
	client := setupRedis(t)
	j := setupJournal(t, client, 100317)
	ctx := context.Background()

	if err := j.MarkDone(ctx, 4); err != nil {
		t.Fatalf("MarkDone(4) error: %v", err)
	}
	// Simulate a corrupt member written by something else.
	if err := client.SAdd(ctx, j.Key(), "not-a-page").Err(); err != nil {
		t.Fatalf("SAdd() error: %v", err)
	}

	done, err := j.Completed(ctx)
	if err != nil {
		t.Fatalf("Completed() error: %v", err)
	}
	if len(done) != 1 {
		t.Errorf("len(Completed()) = %d, want 1", len(done))
	}
	if _, ok := done[4]; !ok {
		t.Error("Completed() missing page 4")
	}
}

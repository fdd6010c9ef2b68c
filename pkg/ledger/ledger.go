// Package ledger tracks permanently failed pages and writes the failure
// report consumed by operators re-running those pages.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
)

// Report is the JSON document written at the end of a run.
type Report struct {
	FailedPages []int `json:"Failed Pages"`
}

// Ledger is a thread-safe set of failed page numbers.
type Ledger struct {
	mu    sync.Mutex
	pages map[int]struct{}
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{pages: make(map[int]struct{})}
}

// Record marks a page as permanently failed. Recording the same page
// again has no further effect.
func (l *Ledger) Record(page int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pages[page] = struct{}{}
}

// Len returns the number of failed pages.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pages)
}

// Pages returns the failed page numbers in ascending order.
func (l *Ledger) Pages() []int {
	l.mu.Lock()
	defer l.mu.Unlock()

	pages := make([]int, 0, len(l.pages))
	for p := range l.pages {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}

// WriteReport writes the failure report to path. An empty ledger writes
// an empty list, never null. The report goes through a temp file and a
// rename so a crash cannot leave a torn file behind.
func (l *Ledger) WriteReport(path string) error {
	data, err := json.Marshal(Report{FailedPages: l.Pages()})
	if err != nil {
		return fmt.Errorf("marshal failure report: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("write failure report temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("rename failure report: %w", err)
	}
	return nil
}

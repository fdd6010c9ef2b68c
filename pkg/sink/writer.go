// Package sink persists extracted standings records as one JSON object
// per line.
package sink

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dylan-130/FPLscraper/pkg/standings"
)

// ErrClosed is returned by Write after the sink has been closed.
var ErrClosed = errors.New("sink closed")

// Prometheus metrics for sink operations.
var (
	fplRecordsWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fpl_records_written_total",
		Help: "Total standings records written to the output file",
	})

	fplSinkBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fpl_sink_bytes_total",
		Help: "Total bytes written to the output file before compression",
	})
)

// Writer appends standings records to a single output file, one JSON
// object per line. Batches are atomic with respect to each other: lines
// from concurrent writers never interleave.
type Writer struct {
	mu     sync.Mutex
	f      *os.File
	gz     *gzip.Writer
	path   string
	closed bool
}

// Options configure a Writer.
type Options struct {
	// Gzip compresses the output stream. The line format inside the
	// stream is unchanged.
	Gzip bool
}

// New creates the output file at path, truncating any previous run.
func New(path string, opts Options) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}

	w := &Writer{f: f, path: path}
	if opts.Gzip {
		w.gz = gzip.NewWriter(f)
	}
	return w, nil
}

// Write appends all records as consecutive lines. The whole batch is
// encoded up front and issued as a single write under the lock, then
// flushed, so a nil return means every line is complete and handed to
// the OS.
func (w *Writer) Write(records []standings.Record) error {
	if len(records) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, r := range records {
		line, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}

	if w.gz != nil {
		if _, err := w.gz.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("write records: %w", err)
		}
		if err := w.gz.Flush(); err != nil {
			return fmt.Errorf("flush records: %w", err)
		}
	} else {
		if _, err := w.f.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("write records: %w", err)
		}
	}

	fplRecordsWrittenTotal.Add(float64(len(records)))
	fplSinkBytesTotal.Add(float64(buf.Len()))
	return nil
}

// Path returns the output file path.
func (w *Writer) Path() string {
	return w.path
}

// Close flushes and closes the output file. It is safe to call more
// than once.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.gz != nil {
		if err := w.gz.Close(); err != nil {
			w.f.Close()
			return fmt.Errorf("close gzip stream: %w", err)
		}
	}
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}
	return nil
}

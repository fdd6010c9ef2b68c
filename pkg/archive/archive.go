// Package archive uploads finished run artifacts to blob storage.
package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // local filesystem driver
	_ "gocloud.dev/blob/gcsblob"  // GCS driver
	_ "gocloud.dev/blob/s3blob"   // S3 driver

	"github.com/dylan-130/FPLscraper/pkg/logging"
)

// Prometheus metrics for archive uploads.
var (
	fplArchiveUploadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fpl_archive_uploads_total",
		Help: "Artifacts uploaded to the archive bucket",
	})

	fplArchiveBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fpl_archive_bytes_total",
		Help: "Bytes uploaded to the archive bucket",
	})
)

// Uploader copies local artifacts into a blob bucket. The bucket URL picks
// the driver: file:///path, gs://bucket or s3://bucket.
type Uploader struct {
	bucket    *blob.Bucket
	bucketURL string
	logger    zerolog.Logger
}

// NewUploader opens the bucket behind bucketURL.
func NewUploader(ctx context.Context, bucketURL string) (*Uploader, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open archive bucket %s: %w", bucketURL, err)
	}

	return &Uploader{
		bucket:    bucket,
		bucketURL: bucketURL,
		logger:    logging.NewLogger("archive"),
	}, nil
}

// RunKey returns the bucket key for a run artifact, grouping every file of
// one run under runs/<runID>/.
func RunKey(runID, localPath string) string {
	return path.Join("runs", runID, filepath.Base(localPath))
}

// UploadFile copies the file at localPath to key in the bucket.
func (u *Uploader) UploadFile(ctx context.Context, localPath, key string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open artifact %s: %w", localPath, err)
	}
	defer f.Close()

	w, err := u.bucket.NewWriter(ctx, key, nil)
	if err != nil {
		return fmt.Errorf("create writer for %s: %w", key, err)
	}

	n, err := io.Copy(w, f)
	if err != nil {
		w.Close()
		return fmt.Errorf("upload %s to %s: %w", localPath, key, err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer for %s: %w", key, err)
	}

	fplArchiveUploadsTotal.Inc()
	fplArchiveBytesTotal.Add(float64(n))

	u.logger.Info().
		Str("key", key).
		Int64("bytes", n).
		Msg("Artifact archived")
	return nil
}

// Exists reports whether key is already present in the bucket.
func (u *Uploader) Exists(ctx context.Context, key string) (bool, error) {
	return u.bucket.Exists(ctx, key)
}

// Close releases the bucket connection.
func (u *Uploader) Close() error {
	if u.bucket != nil {
		return u.bucket.Close()
	}
	return nil
}

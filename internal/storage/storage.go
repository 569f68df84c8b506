package storage

import (
	"context"
	"io"
	"log"

	"github.com/naoTimesdev/showtimes-sub000/internal/config"
)

// FileInfo describes one stored object.
type FileInfo struct {
	Filename    string
	ContentType string
	Size        int64
}

// Storage is the object store behind poster images and other uploads.
// Objects are addressed by base/parent/filename under a type prefix,
// mirroring how image paths are served.
type Storage interface {
	// Upload streams data into the store and returns the amount written.
	Upload(ctx context.Context, base, parent, filename, kind string, r io.Reader, size int64) (int64, error)
	// Download opens the object for reading. The caller closes it.
	Download(ctx context.Context, base, parent, filename, kind string) (io.ReadCloser, error)
	Stat(ctx context.Context, base, parent, filename, kind string) (*FileInfo, error)
	Exists(ctx context.Context, base, parent, filename, kind string) bool
	Delete(ctx context.Context, base, parent, filename, kind string) error
}

// New picks the S3 backend when credentials are configured and falls
// back to the local filesystem otherwise.
func New(cfg *config.Config) (Storage, error) {
	if cfg.S3Enabled() {
		log.Printf("[storage] using s3 backend, bucket %s", cfg.S3Bucket)
		return NewS3(cfg.S3Endpoint, cfg.S3Key, cfg.S3Secret, cfg.S3Region, cfg.S3Bucket)
	}
	log.Printf("[storage] using local backend at %s", cfg.StorageDir)
	return NewLocal(cfg.StorageDir)
}

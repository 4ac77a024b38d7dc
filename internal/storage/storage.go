// Package storage provides temporary and published file storage. It defines
// the Storage port and adapters for local disk and S3-backed delivery of
// finished compositions.
package storage

import (
	"context"
	"io"
)

// Storage defines the interface for temporary and published file storage.
// Implementations hand back scratch files written during composition and
// optionally publish the final video to an external bucket.
type Storage interface {
	// LoadTemp reads a temporary file and returns a reader.
	// The caller is responsible for closing the returned ReadCloser.
	LoadTemp(ctx context.Context, path string) (io.ReadCloser, error)

	// CleanupTemp removes the specified temporary files.
	// It continues cleanup even if some files fail to delete.
	CleanupTemp(ctx context.Context, paths []string) error

	// Publish uploads data to the configured bucket and returns the public
	// URL. Returns ErrNotConfigured when no bucket is configured.
	Publish(ctx context.Context, key string, data io.Reader) (url string, err error)
}

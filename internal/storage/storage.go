// Package storage is the artifact store for conversion jobs.
// It owns two directories: an inbound scratch area for uploaded source images
// and an outbound area for generated videos served back to clients. It only
// allocates, saves and deletes paths; it has no business logic.
package storage

import (
	"context"
	"io"
)

// PublicPrefix is the URL path under which generated videos are served.
const PublicPrefix = "/videos/"

// Store defines the interface for artifact storage.
// Allocated paths are unique across concurrent callers, so jobs never share
// an input or output file and the store needs no per-job locking.
type Store interface {
	// EnsureDirs creates the backing directories if they are missing.
	// It is idempotent.
	EnsureDirs() error

	// AllocateInputPath returns a fresh scratch path for an upload.
	// originalName is kept, sanitized, as a suffix.
	AllocateInputPath(originalName string) (string, error)

	// AllocateOutputPath returns a fresh path for a generated video.
	AllocateOutputPath() (string, error)

	// SaveInput stores data under a freshly allocated input path and
	// returns that path. The file appears atomically.
	SaveInput(ctx context.Context, originalName string, data io.Reader) (string, error)

	// Delete removes path. Deleting a missing path is not an error.
	Delete(path string) error

	// Exists reports whether path is an existing regular file.
	Exists(path string) bool

	// Size returns the size in bytes of the file at path.
	Size(path string) (int64, error)

	// PublicURLFor returns the URL under which outputPath is retrievable.
	// baseURL is the scheme://host the client used to reach the service.
	PublicURLFor(ctx context.Context, baseURL, outputPath string) (string, error)
}

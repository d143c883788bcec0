package job

import (
	"context"
	"errors"
	"time"
)

// ErrJobNotFound is returned when a job cannot be found by ID.
var ErrJobNotFound = errors.New("job not found")

// Repository stores job snapshots for status lookups.
// The supervisor saves one on every state change; records are not part of the
// conversion itself, so a failing repository never changes a Result.
type Repository interface {
	// Save stores a snapshot of job, replacing any earlier one with the same ID.
	Save(ctx context.Context, job *Job) error

	// FindByID returns the latest snapshot of the job.
	// Returns ErrJobNotFound if the job does not exist.
	FindByID(ctx context.Context, id string) (*Job, error)

	// List returns all jobs, newest first.
	List(ctx context.Context) ([]*Job, error)

	// DeleteCleanedBefore drops CLEANED jobs whose cleanup finished before
	// cutoff and returns how many were dropped. Jobs still in flight are kept.
	DeleteCleanedBefore(ctx context.Context, cutoff time.Time) (int, error)
}

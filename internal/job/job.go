// Package job provides the conversion job aggregate and the supervisor that
// drives one still image through the encoder to a published video.
// A Job moves through a fixed state machine and always ends in CLEANED.
package job

import (
	"errors"
	"sync"
	"time"

	"github.com/maauso/img2video-api/internal/job/id"
)

// Status represents the current state of a Job.
type Status string

const (
	// StatusAccepted indicates the request passed intake and awaits a worker slot.
	StatusAccepted Status = "ACCEPTED"
	// StatusInvoking indicates the encoder is running.
	StatusInvoking Status = "INVOKING"
	// StatusSucceeded indicates the encoder produced a non-empty video.
	StatusSucceeded Status = "SUCCEEDED"
	// StatusTimedOut indicates the encoder exceeded its wall-clock budget or
	// the job found no worker slot within the queue timeout.
	StatusTimedOut Status = "TIMED_OUT"
	// StatusOutputTooLarge indicates the encoder wrote more output than allowed.
	StatusOutputTooLarge Status = "OUTPUT_TOO_LARGE"
	// StatusProcessFailed indicates the encoder failed to launch, exited
	// non-zero or produced no video.
	StatusProcessFailed Status = "PROCESS_FAILED"
	// StatusCanceled indicates the caller abandoned the request.
	StatusCanceled Status = "CANCELED"
	// StatusCleaned indicates scratch artifacts were released. It is final.
	StatusCleaned Status = "CLEANED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusAccepted:       {StatusInvoking, StatusTimedOut, StatusProcessFailed, StatusCanceled, StatusCleaned},
	StatusInvoking:       {StatusSucceeded, StatusTimedOut, StatusOutputTooLarge, StatusProcessFailed, StatusCanceled},
	StatusSucceeded:      {StatusCleaned},
	StatusTimedOut:       {StatusCleaned},
	StatusOutputTooLarge: {StatusCleaned},
	StatusProcessFailed:  {StatusCleaned},
	StatusCanceled:       {StatusCleaned},
	StatusCleaned:        {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Job represents one conversion request from intake to cleanup.
type Job struct {
	mu sync.RWMutex

	// ID is the unique identifier for this job.
	ID string
	// Status is the current job state.
	Status Status
	// OriginalName is the client supplied file name of the image.
	OriginalName string
	// SourcePath is the uploaded image in the scratch area.
	SourcePath string
	// OutputPath is the allocated video path, empty until allocated.
	OutputPath string
	// DurationSeconds is the effective duration after policy was applied.
	DurationSeconds int
	// Result is set once the job outcome is known.
	Result *Result
	// VideoURL is where the finished video was published, if it was.
	VideoURL string
	// CreatedAt is when the job was accepted.
	CreatedAt time.Time
	// UpdatedAt is when the job was last updated.
	UpdatedAt time.Time
	// StartedAt is when the encoder was invoked.
	StartedAt time.Time
	// CompletedAt is when the outcome was classified.
	CompletedAt time.Time
	// CleanedAt is when scratch artifacts were released.
	CleanedAt time.Time
}

// New creates a new Job with a generated ID and initial ACCEPTED status.
func New() *Job {
	return NewWithID(id.Generate())
}

// NewWithID creates a new Job with the specified ID and initial ACCEPTED status.
// Useful for testing or when ID needs to be externally generated.
func NewWithID(jobID string) *Job {
	now := time.Now()
	return &Job{
		ID:        jobID,
		Status:    StatusAccepted,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the job status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	j.Status = status
	j.UpdatedAt = time.Now()

	switch status {
	case StatusInvoking:
		j.StartedAt = j.UpdatedAt
	case StatusSucceeded, StatusTimedOut, StatusOutputTooLarge, StatusProcessFailed, StatusCanceled:
		j.CompletedAt = j.UpdatedAt
	case StatusCleaned:
		j.CleanedAt = j.UpdatedAt
	}

	return nil
}

// Start transitions the job from ACCEPTED to INVOKING.
func (j *Job) Start() error {
	return j.TransitionTo(StatusInvoking)
}

// Finish records the result and moves the job to the status matching it.
func (j *Job) Finish(res Result) error {
	if err := j.TransitionTo(res.Status()); err != nil {
		return err
	}
	j.SetResult(res)
	return nil
}

// Clean transitions the job to CLEANED.
func (j *Job) Clean() error {
	return j.TransitionTo(StatusCleaned)
}

// GetStatus returns the current job status (thread-safe).
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// SetOutput records the allocated video path.
func (j *Job) SetOutput(outputPath string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.OutputPath = outputPath
	j.UpdatedAt = time.Now()
}

// SetVideoURL records the public location of the finished video.
func (j *Job) SetVideoURL(url string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.VideoURL = url
	j.UpdatedAt = time.Now()
}

// SetResult stores a copy of res on the job.
func (j *Job) SetResult(res Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Result = &res
	j.UpdatedAt = time.Now()
}

// GetResult returns a copy of the result, if one was recorded.
func (j *Job) GetResult() (Result, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.Result == nil {
		return Result{}, false
	}
	return *j.Result, true
}

// IsTerminal returns true once the job has been cleaned up.
func (j *Job) IsTerminal() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status == StatusCleaned
}

// Clone creates a deep copy of the job for safe reads.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var res *Result
	if j.Result != nil {
		r := *j.Result
		res = &r
	}

	return &Job{
		ID:              j.ID,
		Status:          j.Status,
		OriginalName:    j.OriginalName,
		SourcePath:      j.SourcePath,
		OutputPath:      j.OutputPath,
		DurationSeconds: j.DurationSeconds,
		Result:          res,
		VideoURL:        j.VideoURL,
		CreatedAt:       j.CreatedAt,
		UpdatedAt:       j.UpdatedAt,
		StartedAt:       j.StartedAt,
		CompletedAt:     j.CompletedAt,
		CleanedAt:       j.CleanedAt,
	}
}

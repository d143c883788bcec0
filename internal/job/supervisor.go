package job

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/maauso/img2video-api/internal/media"
	"github.com/maauso/img2video-api/internal/metrics"
	"github.com/maauso/img2video-api/internal/storage"
)

// Defaults for the supervisor options.
const (
	DefaultDurationSeconds    = 5
	DefaultMaxDurationSeconds = 600
	DefaultMaxConcurrentJobs  = 4
	DefaultRetention          = time.Hour
)

// Request is one conversion request that passed the transport layer.
type Request struct {
	// SourcePath is the uploaded image, already saved by the store.
	SourcePath string
	// DurationSeconds is the requested video length. Zero means default.
	DurationSeconds int
	// OriginalName is the client supplied file name, for logs only.
	OriginalName string
}

// DurationPolicy decides the effective video length.
type DurationPolicy struct {
	// Default replaces missing or zero durations.
	Default int
	// Max caps the duration; larger requests are clamped.
	Max int
}

// DefaultDurationPolicy returns a 5 second default capped at 10 minutes.
func DefaultDurationPolicy() DurationPolicy {
	return DurationPolicy{Default: DefaultDurationSeconds, Max: DefaultMaxDurationSeconds}
}

// Apply returns the effective duration for a requested one. Zero means
// "not given" and gets Default; negative values are clamped up to 1.
func (p DurationPolicy) Apply(requested int) int {
	if p.Default <= 0 {
		p.Default = DefaultDurationSeconds
	}
	if p.Max < p.Default {
		p.Max = p.Default
	}
	switch {
	case requested == 0:
		return p.Default
	case requested < 0:
		return 1
	case requested > p.Max:
		return p.Max
	default:
		return requested
	}
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLimits sets the per-run encoder limits.
func WithLimits(l media.Limits) Option {
	return func(s *Supervisor) {
		s.limits = l
	}
}

// WithDurationPolicy sets the duration policy.
func WithDurationPolicy(p DurationPolicy) Option {
	return func(s *Supervisor) {
		s.policy = p
	}
}

// WithMaxConcurrentJobs bounds how many encoders run at once.
// Values below 1 are ignored.
func WithMaxConcurrentJobs(n int) Option {
	return func(s *Supervisor) {
		if n > 0 {
			s.maxJobs = n
		}
	}
}

// WithQueueTimeout bounds how long a job waits for a worker slot.
// Values below 1 are ignored; the default is the encoder timeout.
func WithQueueTimeout(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.queueTimeout = d
		}
	}
}

// WithRetention sets how long finished job records stay queryable.
// Values below 1 are ignored.
func WithRetention(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.retention = d
		}
	}
}

// Supervisor owns the lifecycle of conversion jobs. Every accepted request
// yields exactly one Result and exactly one deletion of its source image,
// whichever path ends the job.
type Supervisor struct {
	store     storage.Store
	invoker   media.Invoker
	repo      Repository
	logger    *slog.Logger
	limits    media.Limits
	policy    DurationPolicy
	maxJobs   int
	retention time.Duration
	slots     *semaphore.Weighted

	queueTimeout time.Duration
}

// NewSupervisor creates a Supervisor. A nil repo falls back to an in-memory
// repository and a nil logger to slog.Default().
func NewSupervisor(store storage.Store, invoker media.Invoker, repo Repository, logger *slog.Logger, opts ...Option) *Supervisor {
	if repo == nil {
		repo = NewMemoryRepository()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Supervisor{
		store:     store,
		invoker:   invoker,
		repo:      repo,
		logger:    logger,
		limits:    media.DefaultLimits(),
		policy:    DefaultDurationPolicy(),
		maxJobs:   DefaultMaxConcurrentJobs,
		retention: DefaultRetention,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.queueTimeout <= 0 {
		s.queueTimeout = s.limits.Timeout
	}
	if s.queueTimeout <= 0 {
		s.queueTimeout = media.DefaultTimeout
	}
	s.slots = semaphore.NewWeighted(int64(s.maxJobs))

	return s
}

// Limits returns the encoder limits applied to each run.
func (s *Supervisor) Limits() media.Limits {
	return s.limits
}

// GetJob retrieves a job record by ID.
func (s *Supervisor) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.repo.FindByID(ctx, id)
}

// ListJobs returns the retained job records, newest first.
func (s *Supervisor) ListJobs(ctx context.Context) ([]*Job, error) {
	return s.repo.List(ctx)
}

// AttachURL records where the video of a succeeded job was published.
func (s *Supervisor) AttachURL(ctx context.Context, id, url string) error {
	j, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	j.SetVideoURL(url)
	return s.repo.Save(ctx, j)
}

// Convert runs one conversion to completion. It blocks until the encoder
// finished or was killed and the source image was deleted. Cancelling ctx
// terminates the encoder; the job still ends with a Result and cleanup.
func (s *Supervisor) Convert(ctx context.Context, req Request) (res Result) {
	j := New()
	j.OriginalName = req.OriginalName
	j.SourcePath = req.SourcePath
	j.DurationSeconds = s.policy.Apply(req.DurationSeconds)

	log := s.logger.With(slog.String("job_id", j.ID))
	log.Info("job accepted",
		slog.String("source", j.SourcePath),
		slog.String("original_name", j.OriginalName),
		slog.Int("requested_duration", req.DurationSeconds),
		slog.Int("duration", j.DurationSeconds),
	)

	metrics.JobsInFlight.Inc()
	s.save(ctx, j, log)

	defer func() {
		if r := recover(); r != nil {
			log.Error("conversion panicked",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			res = failure(ErrorProcess, MsgProcessFailed, fmt.Sprintf("internal error: %v", r))
		}
		res.JobID = j.ID
		s.finish(ctx, j, res, log)
		metrics.JobsInFlight.Dec()
	}()

	return s.run(ctx, j, log)
}

// run performs intake checks and the encoder invocation.
func (s *Supervisor) run(ctx context.Context, j *Job, log *slog.Logger) Result {
	if j.SourcePath == "" {
		return failure(ErrorInvalidIntake, MsgInvalidIntake, ErrMissingSource.Error())
	}
	if !s.store.Exists(j.SourcePath) {
		return failure(ErrorInvalidIntake, MsgInvalidIntake, ErrSourceNotFound.Error())
	}

	if err := s.acquireSlot(ctx); err != nil {
		if ctx.Err() != nil {
			log.Warn("gave up waiting for a worker slot", slog.String("error", err.Error()))
			return failure(ErrorCanceled, MsgCanceled, "")
		}
		log.Warn("no worker slot within queue timeout", slog.Duration("queue_timeout", s.queueTimeout))
		return failure(ErrorTimeout, MsgBusy, ErrQueueTimeout.Error())
	}
	defer s.slots.Release(1)

	outputPath, err := s.store.AllocateOutputPath()
	if err != nil {
		log.Error("failed to allocate output path", slog.String("error", err.Error()))
		return failure(ErrorProcess, MsgProcessFailed, err.Error())
	}
	j.SetOutput(outputPath)

	if err := j.Start(); err != nil {
		log.Warn("unexpected job transition", slog.String("to", string(StatusInvoking)), slog.String("error", err.Error()))
	}
	s.save(ctx, j, log)

	log.Info("invoking encoder",
		slog.String("output", outputPath),
		slog.Int("duration", j.DurationSeconds),
		slog.Duration("timeout", s.limits.Timeout),
	)

	outcome := s.invoker.Run(ctx, media.Request{
		SourcePath:      j.SourcePath,
		OutputPath:      outputPath,
		DurationSeconds: j.DurationSeconds,
	}, s.limits)

	res := classify(outcome, outputPath, s.outputReady(outputPath))

	log.Info("encoder finished",
		slog.String("result", outcome.Result()),
		slog.Int("exit_code", outcome.ExitCode),
		slog.Int("pid", outcome.PID),
		slog.Duration("elapsed", outcome.Elapsed),
		slog.Bool("truncated", outcome.OutputTruncated),
	)

	return res
}

// acquireSlot waits at most queueTimeout for a worker slot, so a queued
// job ends within queueTimeout plus one encoder timeout.
func (s *Supervisor) acquireSlot(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, s.queueTimeout)
	defer cancel()
	return s.slots.Acquire(waitCtx, 1)
}

func (s *Supervisor) outputReady(path string) bool {
	if !s.store.Exists(path) {
		return false
	}
	size, err := s.store.Size(path)
	return err == nil && size > 0
}

// finish records the result, releases artifacts and moves the job to CLEANED.
// Cleanup problems are logged and counted but never change res.
func (s *Supervisor) finish(ctx context.Context, j *Job, res Result, log *slog.Logger) {
	if res.Status() == StatusCleaned {
		j.SetResult(res)
	} else if err := j.Finish(res); err != nil {
		log.Warn("unexpected job transition", slog.String("to", string(res.Status())), slog.String("error", err.Error()))
		j.SetResult(res)
	}

	if err := s.store.Delete(j.SourcePath); err != nil {
		metrics.IncCleanupFailure("source")
		log.Error("failed to delete source image", slog.String("path", j.SourcePath), slog.String("error", err.Error()))
	}

	if !res.OK() && j.OutputPath != "" {
		if err := s.store.Delete(j.OutputPath); err != nil {
			metrics.IncCleanupFailure("output")
			log.Error("failed to delete partial output", slog.String("path", j.OutputPath), slog.String("error", err.Error()))
		}
	}

	if err := j.Clean(); err != nil {
		log.Warn("unexpected job transition", slog.String("to", string(StatusCleaned)), slog.String("error", err.Error()))
	}
	s.save(ctx, j, log)
	s.prune(ctx, log)

	kind := string(res.Kind)
	if !res.OK() {
		kind = string(res.ErrorKind)
	}
	metrics.IncJob(kind)

	attrs := []any{
		slog.String("kind", kind),
		slog.Duration("total", time.Since(j.CreatedAt)),
	}
	if res.OK() {
		log.Info("job succeeded", append(attrs, slog.String("file", res.FileName))...)
	} else {
		log.Warn("job failed", append(attrs, slog.String("detail", res.Detail))...)
	}
}

// save stores a snapshot of j. Records are kept even when the request
// context is already cancelled.
func (s *Supervisor) save(ctx context.Context, j *Job, log *slog.Logger) {
	if err := s.repo.Save(context.WithoutCancel(ctx), j); err != nil {
		log.Error("failed to save job", slog.String("error", err.Error()))
	}
}

// prune drops cleaned job records older than the retention window.
func (s *Supervisor) prune(ctx context.Context, log *slog.Logger) {
	n, err := s.repo.DeleteCleanedBefore(context.WithoutCancel(ctx), time.Now().Add(-s.retention))
	if err != nil {
		log.Error("failed to prune jobs", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		log.Debug("pruned job records", slog.Int("count", n))
	}
}

package job

import (
	"errors"
	"path/filepath"
	"unicode/utf8"

	"github.com/maauso/img2video-api/internal/media"
)

// Kind is the top-level outcome of a job.
type Kind string

const (
	// KindSuccess means a non-empty video was produced.
	KindSuccess Kind = "success"
	// KindFailure means no video is available; ErrorKind says why.
	KindFailure Kind = "failure"
)

// ErrorKind classifies a failed job.
type ErrorKind string

const (
	// ErrorInvalidIntake means the request was malformed and no process ran.
	ErrorInvalidIntake ErrorKind = "invalid_intake"
	// ErrorTimeout means the encoder exceeded its wall-clock budget.
	ErrorTimeout ErrorKind = "timeout"
	// ErrorOutputOverflow means the encoder wrote more output than allowed.
	ErrorOutputOverflow ErrorKind = "output_overflow"
	// ErrorProcess means the encoder failed to launch, exited non-zero, or
	// reported success without writing a video.
	ErrorProcess ErrorKind = "process_error"
	// ErrorCanceled means the caller went away before the job finished.
	ErrorCanceled ErrorKind = "canceled"
)

// MaxDetailBytes bounds Result.Detail.
const MaxDetailBytes = 4 << 10

// Human readable messages returned to clients.
const (
	MsgSuccess       = "Video created successfully."
	MsgInvalidIntake = "No valid image was uploaded."
	MsgTooHeavy      = "Video generation took too long or produced too much output. Try a smaller image or a shorter duration."
	MsgProcessFailed = "Video conversion failed."
	MsgCanceled      = "Video conversion was canceled before it finished."
	MsgBusy          = "The server is busy converting other videos. Please try again later."
	MsgNoOutput      = "encoder reported success but wrote no output"
)

// Static errors used in result details.
var (
	// ErrMissingSource is returned when the request has no source path.
	ErrMissingSource = errors.New("source image path is empty")
	// ErrSourceNotFound is returned when the source file does not exist.
	ErrSourceNotFound = errors.New("source image does not exist")
	// ErrQueueTimeout is returned when no worker slot freed up in time.
	ErrQueueTimeout = errors.New("timed out waiting for a worker slot")
)

// Result is the terminal artifact of a job.
type Result struct {
	// Kind is success or failure.
	Kind Kind `json:"kind"`
	// ErrorKind is set on failure only.
	ErrorKind ErrorKind `json:"errorKind,omitempty"`
	// VideoPath is the produced video, success only.
	VideoPath string `json:"videoPath,omitempty"`
	// FileName is the base name of VideoPath.
	FileName string `json:"fileName,omitempty"`
	// Message is safe to show to end users.
	Message string `json:"message"`
	// Detail carries bounded diagnostics, never the full process output.
	Detail string `json:"detail,omitempty"`
	// JobID identifies the job that produced this result.
	JobID string `json:"jobId,omitempty"`
}

// OK reports whether the result is a success.
func (r Result) OK() bool {
	return r.Kind == KindSuccess
}

// Status maps the result to the job state it ends in before cleanup.
// Invalid intake skips invocation and goes straight to CLEANED.
func (r Result) Status() Status {
	if r.OK() {
		return StatusSucceeded
	}
	switch r.ErrorKind {
	case ErrorTimeout:
		return StatusTimedOut
	case ErrorOutputOverflow:
		return StatusOutputTooLarge
	case ErrorCanceled:
		return StatusCanceled
	case ErrorInvalidIntake:
		return StatusCleaned
	default:
		return StatusProcessFailed
	}
}

func success(videoPath, fileName string) Result {
	return Result{
		Kind:      KindSuccess,
		VideoPath: videoPath,
		FileName:  fileName,
		Message:   MsgSuccess,
	}
}

func failure(kind ErrorKind, msg, detail string) Result {
	return Result{
		Kind:      KindFailure,
		ErrorKind: kind,
		Message:   msg,
		Detail:    truncateDetail(detail),
	}
}

// classify turns a raw encoder outcome into a Result. The checks run in a
// fixed order: timeout, overflow, cancellation, process failure. Success is
// only reported when outputReady confirms a non-empty video on disk.
func classify(out media.Outcome, outputPath string, outputReady bool) Result {
	switch {
	case out.KilledByTimeout:
		return failure(ErrorTimeout, MsgTooHeavy, out.Stderr)
	case out.OutputTruncated:
		return failure(ErrorOutputOverflow, MsgTooHeavy, "")
	case out.Canceled:
		return failure(ErrorCanceled, MsgCanceled, "")
	case !out.Launched():
		return failure(ErrorProcess, MsgProcessFailed, out.LaunchErr.Error())
	case !out.ExitedCleanly || out.ExitCode != 0:
		return failure(ErrorProcess, MsgProcessFailed, out.Stderr)
	case !outputReady:
		return failure(ErrorProcess, MsgProcessFailed, MsgNoOutput)
	default:
		return success(outputPath, filepath.Base(outputPath))
	}
}

// truncateDetail keeps at most MaxDetailBytes of s without splitting a rune.
func truncateDetail(s string) string {
	if len(s) <= MaxDetailBytes {
		return s
	}
	cut := MaxDetailBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

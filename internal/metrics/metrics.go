// Package metrics provides Prometheus metrics for the conversion service.
// Labels are bounded enums only: no job ids or file names.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsTotal counts finished conversion jobs by result kind.
	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "img2video_jobs_total",
		Help: "Total number of finished conversion jobs, by result kind.",
	}, []string{"kind"})

	// JobsInFlight tracks jobs between intake and cleanup.
	JobsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "img2video_jobs_in_flight",
		Help: "Current number of conversion jobs between intake and cleanup.",
	})

	// CleanupFailuresTotal counts source or output deletions that failed.
	CleanupFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "img2video_cleanup_failures_total",
		Help: "Total number of failed artifact deletions, by artifact.",
	}, []string{"artifact"})

	// TranscodeRunsTotal counts encoder runs by outcome.
	TranscodeRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "img2video_transcode_runs_total",
		Help: "Total number of transcoder runs, by result (ok/exit_nonzero/launch_failed/timeout/overflow/canceled).",
	}, []string{"result"})

	// TranscodeDuration observes wall-clock time of encoder runs.
	TranscodeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "img2video_transcode_duration_seconds",
		Help:    "Wall-clock duration of transcoder runs.",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
	})

	// ProcSignalTotal counts signals delivered to transcoder process groups.
	ProcSignalTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "img2video_proc_signal_total",
		Help: "Total number of signals sent to transcoder process groups, by signal and result.",
	}, []string{"signal", "result"})
)

// IncJob records a finished job.
func IncJob(kind string) {
	JobsTotal.WithLabelValues(kind).Inc()
}

// IncCleanupFailure records a failed deletion of "source" or "output".
func IncCleanupFailure(artifact string) {
	CleanupFailuresTotal.WithLabelValues(artifact).Inc()
}

// ObserveTranscode records one encoder run.
func ObserveTranscode(result string, elapsed time.Duration) {
	TranscodeRunsTotal.WithLabelValues(result).Inc()
	TranscodeDuration.Observe(elapsed.Seconds())
}

// IncProcSignal records a signal delivery attempt.
func IncProcSignal(signal, result string) {
	ProcSignalTotal.WithLabelValues(signal, result).Inc()
}

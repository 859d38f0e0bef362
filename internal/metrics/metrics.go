// Package metrics collects batch-run counters on a private Prometheus registry and writes them
// in the node-exporter textfile format when the run ends.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "grantalign"

// Recorder implements collector.Metrics and the service-level hooks.
type Recorder struct {
	registry    *prometheus.Registry
	questions   *prometheus.CounterVec
	latency     prometheus.Histogram
	compactions prometheus.Counter
	projects    *prometheus.CounterVec
	skipped     *prometheus.CounterVec
	merged      prometheus.Counter
	lastRun     prometheus.Gauge
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		questions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_total",
			Help:      "Questions sent to the inference backend, by outcome.",
		}, []string{"outcome"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_duration_seconds",
			Help:      "Time spent per inference call.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		compactions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compactions_total",
			Help:      "Running-summary compactions.",
		}),
		projects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "projects_total",
			Help:      "Projects processed, by outcome.",
		}, []string{"outcome"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_skipped_total",
			Help:      "Files skipped because a stage failed.",
		}, []string{"stage"}),
		merged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_merged_total",
			Help:      "Result files folded into a merged summary.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}
	r.registry.MustRegister(r.questions, r.latency, r.compactions, r.projects, r.skipped, r.merged, r.lastRun)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// ObserveInference records one question's outcome ("ok" or "error") and latency.
func (r *Recorder) ObserveInference(outcome string, elapsed time.Duration) {
	r.questions.WithLabelValues(outcome).Inc()
	r.latency.Observe(elapsed.Seconds())
}

// ObserveCompaction records one running-summary compaction.
func (r *Recorder) ObserveCompaction() { r.compactions.Inc() }

// ObserveProject records a finished project ("ok", "empty" or "error").
func (r *Recorder) ObserveProject(outcome string) { r.projects.WithLabelValues(outcome).Inc() }

// ObserveSkip records a file dropped at stage ("download", "extract", "parse", "upload").
func (r *Recorder) ObserveSkip(stage string) { r.skipped.WithLabelValues(stage).Inc() }

// ObserveMerged records n result files folded into a merged summary.
func (r *Recorder) ObserveMerged(n int) { r.merged.Add(float64(n)) }

// WriteTextfile stamps the run end time and writes every metric to path atomically.
func (r *Recorder) WriteTextfile(path string, now time.Time) error {
	r.lastRun.Set(float64(now.Unix()))
	return prometheus.WriteToTextfile(path, r.registry)
}

package metrics

import (
	"time"

	"RiskSentinel/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements the monitor, notifier and scheduler metrics hooks
// using Prometheus.
type Recorder struct {
	passDuration     prometheus.Histogram
	symbolsSkipped   *prometheus.CounterVec
	alertsForwarded  *prometheus.CounterVec
	alertsSuppressed *prometheus.CounterVec
	sinkFailures     *prometheus.CounterVec
	jobRuns          *prometheus.CounterVec
}

// New creates a Recorder whose collectors are registered on reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		passDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "risksentinel_pass_duration_seconds",
				Help:    "Duration of monitoring passes in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		symbolsSkipped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "risksentinel_symbols_skipped_total",
				Help: "Symbols skipped during a pass, by reason",
			},
			[]string{"reason"},
		),
		alertsForwarded: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "risksentinel_alerts_forwarded_total",
				Help: "Alerts forwarded to the sinks",
			},
			[]string{"type"},
		),
		alertsSuppressed: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "risksentinel_alerts_suppressed_total",
				Help: "Alerts suppressed by the dedup window",
			},
			[]string{"type"},
		),
		sinkFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "risksentinel_sink_failures_total",
				Help: "Failed notification deliveries, by sink",
			},
			[]string{"sink"},
		),
		jobRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "risksentinel_job_runs_total",
				Help: "Calendar job executions, by job",
			},
			[]string{"job"},
		),
	}
}

// ObservePass records the duration of one monitoring pass.
func (r *Recorder) ObservePass(d time.Duration) {
	r.passDuration.Observe(d.Seconds())
}

// SymbolSkipped records a skipped symbol.
func (r *Recorder) SymbolSkipped(reason string) {
	r.symbolsSkipped.WithLabelValues(reason).Inc()
}

// AlertForwarded records an alert that passed the dedup window.
func (r *Recorder) AlertForwarded(t model.AlertType) {
	r.alertsForwarded.WithLabelValues(string(t)).Inc()
}

// AlertSuppressed records an alert dropped as a duplicate.
func (r *Recorder) AlertSuppressed(t model.AlertType) {
	r.alertsSuppressed.WithLabelValues(string(t)).Inc()
}

// SinkFailed records a failed delivery on the named sink.
func (r *Recorder) SinkFailed(sink string) {
	r.sinkFailures.WithLabelValues(sink).Inc()
}

// JobRun records a calendar job execution.
func (r *Recorder) JobRun(job string) {
	r.jobRuns.WithLabelValues(job).Inc()
}

package observability

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/viralclips/dispatch"
	"github.com/viralclips/dispatch/ext"
	"github.com/viralclips/dispatch/job"
)

// Compile-time interface checks.
var (
	_ ext.Extension    = (*MetricsExtension)(nil)
	_ ext.JobCreated   = (*MetricsExtension)(nil)
	_ ext.JobRejected  = (*MetricsExtension)(nil)
	_ ext.JobStarted   = (*MetricsExtension)(nil)
	_ ext.JobCompleted = (*MetricsExtension)(nil)
	_ ext.JobFailed    = (*MetricsExtension)(nil)
)

// Label values for dispatch_jobs_rejected_total.
const (
	reasonUnknownType = "unknown_job_type"
	reasonBadPayload  = "invalid_payload"
	reasonRateLimited = "rate_limited"
	reasonQueueFull   = "queue_full"
	reasonStopped     = "stopped"
	reasonStorage     = "storage_unavailable"
	reasonOther       = "other"
)

// MetricsExtension records lifecycle metrics in a Prometheus registry.
// Register it as a Dispatch extension to track creation and rejection
// rates, terminal outcomes, run latency and in-flight jobs per job type.
type MetricsExtension struct {
	JobsCreated   *prometheus.CounterVec
	JobsRejected  *prometheus.CounterVec
	JobsCompleted *prometheus.CounterVec
	JobsFailed    *prometheus.CounterVec
	JobsInFlight  *prometheus.GaugeVec
	JobLatency    *prometheus.HistogramVec

	gatherer prometheus.Gatherer
	started  sync.Map // job id → struct{}, jobs counted in JobsInFlight
}

// NewMetricsExtension creates a MetricsExtension backed by a fresh
// registry.
func NewMetricsExtension() *MetricsExtension {
	reg := prometheus.NewRegistry()
	return NewMetricsExtensionWithRegistry(reg, reg)
}

// NewMetricsExtensionWithRegistry registers the collectors with reg and
// serves them from g. Pass prometheus.DefaultRegisterer and
// prometheus.DefaultGatherer to share the process-wide registry.
func NewMetricsExtensionWithRegistry(reg prometheus.Registerer, g prometheus.Gatherer) *MetricsExtension {
	m := &MetricsExtension{
		JobsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_jobs_created_total",
			Help: "Total number of job records created",
		}, []string{"job_type"}),
		JobsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_jobs_rejected_total",
			Help: "Total number of dispatch requests rejected before a record existed",
		}, []string{"job_type", "reason"}),
		JobsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_jobs_completed_total",
			Help: "Total number of jobs that reached completed",
		}, []string{"job_type"}),
		JobsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_jobs_failed_total",
			Help: "Total number of jobs that reached failed",
		}, []string{"job_type"}),
		JobsInFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dispatch_jobs_in_flight",
			Help: "Jobs currently in progress",
		}, []string{"job_type"}),
		JobLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dispatch_job_latency_seconds",
			Help:    "Time from in_progress to completed in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}, []string{"job_type"}),
		gatherer: g,
	}
	reg.MustRegister(
		m.JobsCreated,
		m.JobsRejected,
		m.JobsCompleted,
		m.JobsFailed,
		m.JobsInFlight,
		m.JobLatency,
	)
	return m
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// Handler serves the registry in the Prometheus text format.
func (m *MetricsExtension) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ── Job lifecycle hooks ─────────────────────────────

// OnJobCreated implements ext.JobCreated.
func (m *MetricsExtension) OnJobCreated(_ context.Context, j *job.Job) error {
	m.JobsCreated.WithLabelValues(j.Type).Inc()
	return nil
}

// OnJobRejected implements ext.JobRejected.
func (m *MetricsExtension) OnJobRejected(_ context.Context, jobType string, err error) error {
	reason := rejectReason(err)
	if reason == reasonUnknownType {
		// Unbounded label values from callers are not recorded.
		jobType = ""
	}
	m.JobsRejected.WithLabelValues(jobType, reason).Inc()
	return nil
}

// OnJobStarted implements ext.JobStarted.
func (m *MetricsExtension) OnJobStarted(_ context.Context, j *job.Job) error {
	m.started.Store(j.ID.String(), struct{}{})
	m.JobsInFlight.WithLabelValues(j.Type).Inc()
	return nil
}

// OnJobCompleted implements ext.JobCompleted.
func (m *MetricsExtension) OnJobCompleted(_ context.Context, j *job.Job, elapsed time.Duration) error {
	m.leave(j)
	m.JobsCompleted.WithLabelValues(j.Type).Inc()
	m.JobLatency.WithLabelValues(j.Type).Observe(elapsed.Seconds())
	return nil
}

// OnJobFailed implements ext.JobFailed.
func (m *MetricsExtension) OnJobFailed(_ context.Context, j *job.Job, _ error) error {
	m.leave(j)
	m.JobsFailed.WithLabelValues(j.Type).Inc()
	return nil
}

// leave decrements the in-flight gauge for jobs that were counted on
// start. A job whose start write failed fails without ever starting.
func (m *MetricsExtension) leave(j *job.Job) {
	if _, ok := m.started.LoadAndDelete(j.ID.String()); ok {
		m.JobsInFlight.WithLabelValues(j.Type).Dec()
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, dispatch.ErrUnknownJobType):
		return reasonUnknownType
	case errors.Is(err, dispatch.ErrInvalidPayload):
		return reasonBadPayload
	case errors.Is(err, dispatch.ErrRateLimited):
		return reasonRateLimited
	case errors.Is(err, dispatch.ErrQueueFull):
		return reasonQueueFull
	case errors.Is(err, dispatch.ErrPoolStopped):
		return reasonStopped
	case errors.Is(err, dispatch.ErrStorageUnavailable):
		return reasonStorage
	default:
		return reasonOther
	}
}

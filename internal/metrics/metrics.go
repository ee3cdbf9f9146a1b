package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vigil_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vigil_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Sample ring buffer
	SamplesRecordedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vigil_samples_recorded_total",
			Help: "Total number of request samples recorded into the ring buffer",
		},
	)

	SamplesEvictedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vigil_samples_evicted_total",
			Help: "Total number of request samples evicted from the ring buffer",
		},
	)

	SampleBufferSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vigil_sample_buffer_size",
			Help: "Number of request samples currently retained",
		},
	)

	// Derived views
	ComputeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vigil_compute_duration_seconds",
			Help:    "Time spent computing a dashboard view",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"view"},
	)

	AlertsFiring = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vigil_alerts_firing",
			Help: "Number of alerts produced by the last evaluation, by severity",
		},
		[]string{"severity"},
	)

	// Audit metrics
	AuditEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_audit_events_total",
			Help: "Total number of audit events processed by sink and result",
		},
		[]string{"sink", "result"},
	)

	AuditEventsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_audit_events_dropped_total",
			Help: "Total number of audit events dropped before reaching the sink",
		},
		[]string{"sink", "reason"},
	)

	AuditAppendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vigil_audit_append_duration_seconds",
			Help:    "Duration of a single durable audit append",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"sink"},
	)

	AuditQueryFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_audit_query_failures_total",
			Help: "Total number of failed audit store reads",
		},
		[]string{"sink"},
	)

	RateLimitRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_rate_limit_requests_total",
			Help: "Rate limit decisions by scope and result",
		},
		[]string{"scope", "result"},
	)

	// System metrics
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vigil_build_info",
			Help: "Build information about vigil",
		},
		[]string{"version", "go_version"},
	)
)

package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. Every method is safe on a nil
// receiver so library components can run without a collector.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Build metrics
	BuildsTotal   *prometheus.CounterVec
	BuildDuration prometheus.Histogram
	ArtifactBytes prometheus.Histogram
	Advisories    *prometheus.CounterVec

	// Load metrics
	LoadsTotal   *prometheus.CounterVec
	LoadDuration prometheus.Histogram

	// Registry metrics
	MountedPackages prometheus.Gauge
	MountedExports  prometheus.Gauge
	Conflicts       prometheus.Counter
	Unmounts        prometheus.Counter

	// Dispatch metrics
	Invocations *prometheus.CounterVec
}

// NewMetrics creates a new metrics collector with its own registry, so
// independent collectors never clash on registration.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apkg_http_requests_total",
				Help: "Total number of host API requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "apkg_http_request_duration_seconds",
				Help:    "Host API request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		BuildsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apkg_builds_total",
				Help: "Total number of artifact builds by outcome",
			},
			[]string{"status"},
		),
		BuildDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "apkg_build_duration_seconds",
				Help:    "Artifact build duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		ArtifactBytes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "apkg_artifact_uncompressed_bytes",
				Help:    "Uncompressed size of built artifacts",
				Buckets: []float64{1e3, 1e4, 1e5, 1e6, 1e7, 5e7},
			},
		),
		Advisories: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apkg_advisories_total",
				Help: "Non-blocking advisories reported during builds",
			},
			[]string{"code"},
		),

		LoadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apkg_loads_total",
				Help: "Total number of package loads by outcome",
			},
			[]string{"status"},
		),
		LoadDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "apkg_load_duration_seconds",
				Help:    "Package load duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		MountedPackages: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "apkg_mounted_packages",
				Help: "Number of packages currently mounted",
			},
		),
		MountedExports: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "apkg_mounted_exports",
				Help: "Number of export ids currently mounted",
			},
		),
		Conflicts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "apkg_mount_conflicts_total",
				Help: "Registrations rejected because of export id conflicts",
			},
		),
		Unmounts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "apkg_unmounts_total",
				Help: "Total number of package unmounts",
			},
		),

		Invocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apkg_invocations_total",
				Help: "Export invocations dispatched by the host",
			},
			[]string{"export", "status"},
		),
	}
}

// Registry exposes the underlying Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus exposition handler for this collector
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records a host API request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordBuild records the outcome of one build
func (m *Metrics) RecordBuild(status string, duration time.Duration, size int64) {
	if m == nil {
		return
	}
	m.BuildsTotal.WithLabelValues(status).Inc()
	m.BuildDuration.Observe(duration.Seconds())
	if size > 0 {
		m.ArtifactBytes.Observe(float64(size))
	}
}

// RecordAdvisory counts an advisory by code
func (m *Metrics) RecordAdvisory(code string) {
	if m == nil {
		return
	}
	m.Advisories.WithLabelValues(code).Inc()
}

// RecordLoad records the outcome of one load
func (m *Metrics) RecordLoad(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.LoadsTotal.WithLabelValues(status).Inc()
	m.LoadDuration.Observe(duration.Seconds())
}

// SetMounted sets the current package and export counts
func (m *Metrics) SetMounted(packages, exports int) {
	if m == nil {
		return
	}
	m.MountedPackages.Set(float64(packages))
	m.MountedExports.Set(float64(exports))
}

// IncConflicts counts a rejected registration
func (m *Metrics) IncConflicts() {
	if m == nil {
		return
	}
	m.Conflicts.Inc()
}

// IncUnmounts counts an unmount
func (m *Metrics) IncUnmounts() {
	if m == nil {
		return
	}
	m.Unmounts.Inc()
}

// RecordInvocation counts a dispatched invocation
func (m *Metrics) RecordInvocation(exportID, status string) {
	if m == nil {
		return
	}
	m.Invocations.WithLabelValues(exportID, status).Inc()
}

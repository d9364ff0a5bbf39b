package telemetry

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of lint runs. A disabled Metrics
// accepts every call and records nothing.
type Metrics struct {
	config MetricsConfig

	runsTotal          *prometheus.CounterVec
	runDuration        *prometheus.HistogramVec
	diagnosticsTotal   *prometheus.CounterVec
	subprojectFailures *prometheus.CounterVec
	filesAnalyzed      prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates the collectors on a private registry.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	m := &Metrics{
		config:   cfg,
		registry: prometheus.NewRegistry(),

		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of lint runs",
			},
			[]string{"status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of lint runs in seconds",
				Buckets:   buckets,
			},
			[]string{"status"},
		),
		diagnosticsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "diagnostics_total",
				Help:      "Total number of diagnostics reported",
			},
			[]string{"severity"},
		),
		subprojectFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "subproject_failures_total",
				Help:      "Total number of subprojects that could not be analyzed",
			},
			[]string{"class"},
		),
		filesAnalyzed: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "files_analyzed",
				Help:      "Number of build files in the last analyzed workspace",
			},
		),
	}

	collectors := []prometheus.Collector{
		m.runsTotal,
		m.runDuration,
		m.diagnosticsTotal,
		m.subprojectFailures,
		m.filesAnalyzed,
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordRun counts a finished run and observes its duration.
func (m *Metrics) RecordRun(status string, duration time.Duration) {
	if m.runsTotal == nil {
		return
	}
	m.runsTotal.WithLabelValues(status).Inc()
	m.runDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordDiagnostics adds n diagnostics of the given severity.
func (m *Metrics) RecordDiagnostics(severity string, n int) {
	if m.diagnosticsTotal == nil || n == 0 {
		return
	}
	m.diagnosticsTotal.WithLabelValues(severity).Add(float64(n))
}

// RecordSubprojectFailure counts a subproject error by class.
func (m *Metrics) RecordSubprojectFailure(class string) {
	if m.subprojectFailures == nil {
		return
	}
	m.subprojectFailures.WithLabelValues(class).Inc()
}

// SetFilesAnalyzed sets the file count of the last run.
func (m *Metrics) SetFilesAnalyzed(n int) {
	if m.filesAnalyzed == nil {
		return
	}
	m.filesAnalyzed.Set(float64(n))
}

// Registry returns the private registry, nil when metrics are disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Timer measures the duration of an operation.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the time elapsed since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Handler returns the HTTP handler of the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Server returns an HTTP server exposing the metrics endpoint, or nil when
// metrics are disabled.
func (m *Metrics) Server() *http.Server {
	if !m.config.Enabled {
		return nil
	}
	path := m.config.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	return &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// ListenAndServe serves the metrics endpoint until the server is shut
// down. A closed server is not an error.
func ListenAndServe(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values for templates_parsed_total.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics provides Prometheus metrics for template parsing and checks.
type Metrics struct {
	config MetricsConfig

	// Template metrics
	templatesParsed *prometheus.CounterVec
	templateErrors  *prometheus.CounterVec
	parseDuration   *prometheus.HistogramVec

	// Check metrics
	filesChecked  *prometheus.CounterVec
	findings      *prometheus.CounterVec
	checkRuns     *prometheus.CounterVec
	checkDuration prometheus.Histogram
	activeChecks  prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// no-op instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		templatesParsed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "templates_parsed_total",
				Help:      "Total number of templates parsed",
			},
			[]string{"grammar", "result"},
		),
		templateErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "template_errors_total",
				Help:      "Total number of template errors by error code",
			},
			[]string{"code"},
		),
		parseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "template_parse_duration_seconds",
				Help:      "Duration of template parsing in seconds",
				Buckets:   buckets,
			},
			[]string{"grammar"},
		),

		filesChecked: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "check_files_total",
				Help:      "Total number of files checked",
			},
			[]string{"kind"},
		),
		findings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "check_findings_total",
				Help:      "Total number of findings reported",
			},
			[]string{"severity"},
		),
		checkRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "check_runs_total",
				Help:      "Total number of check runs",
			},
			[]string{"status"},
		),
		checkDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "check_duration_seconds",
				Help:      "Duration of check runs in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		activeChecks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_checks",
				Help:      "Current number of running checks",
			},
		),
	}

	registry.MustRegister(
		m.templatesParsed,
		m.templateErrors,
		m.parseDuration,
		m.filesChecked,
		m.findings,
		m.checkRuns,
		m.checkDuration,
		m.activeChecks,
	)

	return m, nil
}

// Template Metrics

// RecordTemplateParsed records one parse. code is the error code of a
// failed parse and empty on success. A zero duration means the parse was not
// timed and is left out of the histogram.
func (m *Metrics) RecordTemplateParsed(grammar, code string, duration time.Duration) {
	if m.templatesParsed == nil {
		return
	}
	result := ResultOK
	if code != "" {
		result = ResultError
		m.templateErrors.WithLabelValues(code).Inc()
	}
	m.templatesParsed.WithLabelValues(grammar, result).Inc()
	if duration > 0 {
		m.parseDuration.WithLabelValues(grammar).Observe(duration.Seconds())
	}
}

// Check Metrics

// RecordFileChecked counts a checked file by kind (go, cue, yaml).
func (m *Metrics) RecordFileChecked(kind string) {
	if m.filesChecked == nil {
		return
	}
	m.filesChecked.WithLabelValues(kind).Inc()
}

// RecordFinding counts a finding by severity.
func (m *Metrics) RecordFinding(severity string) {
	if m.findings == nil {
		return
	}
	m.findings.WithLabelValues(severity).Inc()
}

// RecordCheckStarted marks a check run as active.
func (m *Metrics) RecordCheckStarted() {
	if m.activeChecks == nil {
		return
	}
	m.activeChecks.Inc()
}

// RecordCheckCompleted records a finished check run with its status and
// duration.
func (m *Metrics) RecordCheckCompleted(status string, duration time.Duration) {
	if m.checkRuns == nil {
		return
	}
	m.checkRuns.WithLabelValues(status).Inc()
	m.checkDuration.Observe(duration.Seconds())
	m.activeChecks.Dec()
}

// WriteTextfile writes the registry to path in the node exporter textfile
// format.
func (m *Metrics) WriteTextfile(path string) error {
	if m.registry == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server exposing metrics. The returned
// server is already listening; callers shut it down when done.
func (m *Metrics) StartMetricsServer(logger *Logger) *http.Server {
	if !m.config.Enabled || m.config.ListenAddress == "" {
		return nil
	}

	path := m.config.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("metrics server stopped")
		}
	}()

	return server
}

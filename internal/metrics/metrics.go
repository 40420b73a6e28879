// Package metrics provides Prometheus metrics for the upload gateway.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Default histogram buckets for request latency.
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// partSizeBuckets cover retained part sizes from 1 KiB up to ~256 MiB.
var partSizeBuckets = prometheus.ExponentialBuckets(1024, 4, 10)

// Metrics holds all Prometheus metric collectors for the gateway.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	FormsTotal           *prometheus.CounterVec
	PartsTotal           *prometheus.CounterVec
	PartSizeBytes        *prometheus.HistogramVec
	TextSpillsTotal      prometheus.Counter
	FileTruncationsTotal prometheus.Counter
	FilesPersistedTotal  prometheus.Counter
}

// New creates a Metrics instance with a custom registry and all collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "formgate_http_requests_total",
			Help: "Total inbound HTTP requests.",
		}, []string{"method", "status_code", "path_prefix"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "formgate_http_request_duration_seconds",
			Help:    "Inbound HTTP request latency in seconds.",
			Buckets: defaultBuckets,
		}, []string{"method", "status_code", "path_prefix"}),

		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "formgate_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed.",
		}),

		FormsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "formgate_forms_total",
			Help: "Total multipart forms collected, by outcome.",
		}, []string{"outcome"}),

		PartsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "formgate_form_parts_total",
			Help: "Total form parts collected, by routing kind.",
		}, []string{"kind"}),

		PartSizeBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "formgate_form_part_size_bytes",
			Help:    "Retained part size in bytes, by routing kind.",
			Buckets: partSizeBuckets,
		}, []string{"kind"}),

		TextSpillsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "formgate_text_spills_total",
			Help: "Text parts that crossed the text limit and spilled to disk.",
		}),

		FileTruncationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "formgate_file_truncations_total",
			Help: "File parts truncated at the file limit.",
		}),

		FilesPersistedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "formgate_files_persisted_total",
			Help: "Files moved from temp storage to their destination.",
		}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
		m.FormsTotal,
		m.PartsTotal,
		m.PartSizeBytes,
		m.TextSpillsTotal,
		m.FileTruncationsTotal,
		m.FilesPersistedTotal,
	)

	return m
}

// knownMethods lists the allowed HTTP method label values (bounded cardinality).
var knownMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true,
}

// NormalizeMethod returns a bounded HTTP method label for Prometheus metrics.
// Non-standard methods are mapped to "other" to prevent cardinality explosion.
func NormalizeMethod(method string) string {
	if knownMethods[method] {
		return method
	}
	return "other"
}

// knownPrefixes lists the allowed path label values (bounded cardinality).
var knownPrefixes = []string{"/upload", "/healthz", "/status", "/metrics"}

// NormalizePath returns a bounded path label for Prometheus metrics.
func NormalizePath(path string) string {
	for _, prefix := range knownPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") || strings.HasPrefix(path, prefix+"?") {
			return prefix
		}
	}
	return "other"
}

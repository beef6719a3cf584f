// Package metrics provides Prometheus metrics for the prediction service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const DefaultNamespace = "cardiodna"

// Metrics holds all Prometheus metrics for the application. Every instance
// owns its registry, so several can coexist in one process. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Pipeline metrics
	PredictionsTotal      *prometheus.CounterVec
	RejectionsTotal       *prometheus.CounterVec
	PredictionDuration    prometheus.Histogram
	StageDuration         *prometheus.HistogramVec
	PredictionProbability prometheus.Histogram

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	APIKeyChecks        *prometheus.CounterVec

	// Model metrics
	ModelVersion  prometheus.Gauge
	ModelLoadedAt prometheus.Gauge
}

// New creates a Metrics instance registered on a fresh registry that also
// carries the Go runtime and process collectors.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		PredictionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "predictions_total",
			Help:      "Total number of completed predictions by diagnosis",
		}, []string{"diagnosis"}),
		RejectionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "rejections_total",
			Help:      "Total number of rejected waveforms by reason",
		}, []string{"reason"}),
		PredictionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "prediction_duration_seconds",
			Help:      "End-to-end prediction latency in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Per-stage latency in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05},
		}, []string{"stage"}),
		PredictionProbability: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "prediction_probability",
			Help:      "Probability of the predicted class",
			Buckets:   prometheus.LinearBuckets(0.5, 0.05, 10),
		}),

		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		APIKeyChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "api_key_checks_total",
			Help:      "API key checks by result",
		}, []string{"result"}),

		ModelVersion: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "version",
			Help:      "Version of the loaded classifier",
		}),
		ModelLoadedAt: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "loaded_timestamp",
			Help:      "Unix timestamp at which the classifier was loaded",
		}),
	}
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordPrediction records a completed prediction.
func (m *Metrics) RecordPrediction(diagnosis string, probability float64, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.PredictionsTotal.WithLabelValues(diagnosis).Inc()
	m.PredictionProbability.Observe(probability)
	m.PredictionDuration.Observe(elapsed.Seconds())
}

// RecordRejection records a waveform refused by validation or extraction.
func (m *Metrics) RecordRejection(reason string) {
	if m == nil {
		return
	}
	m.RejectionsTotal.WithLabelValues(reason).Inc()
}

// RecordStage records the latency of one pipeline stage.
func (m *Metrics) RecordStage(stage string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// RecordHTTP records one served request.
func (m *Metrics) RecordHTTP(route string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// RecordAPIKeyCheck records the outcome of an API key lookup.
func (m *Metrics) RecordAPIKeyCheck(result string) {
	if m == nil {
		return
	}
	m.APIKeyChecks.WithLabelValues(result).Inc()
}

// SetModel publishes the loaded classifier version.
func (m *Metrics) SetModel(version int, loadedAt time.Time) {
	if m == nil {
		return
	}
	m.ModelVersion.Set(float64(version))
	m.ModelLoadedAt.Set(float64(loadedAt.Unix()))
}

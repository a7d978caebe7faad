// Package metrics provides Prometheus-based metrics recording and querying
// for the consultation engine.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder receives per-request observations from the orchestrator and the
// backend middleware. Implementations must never fail the request path.
type Recorder interface {
	// RecordConsult records one completed consultation.
	RecordConsult(status string, emergency bool, duration time.Duration)
	// RecordAttempts records the final attempt count for one specialty
	// within a consultation.
	RecordAttempts(specialty string, attempts int)
	// RecordBackendRequest records one completion backend call.
	RecordBackendRequest(provider, component, outcome string, duration time.Duration)
}

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	consultsTotal   *prometheus.CounterVec
	consultDuration *prometheus.HistogramVec
	attemptsTotal   *prometheus.CounterVec
	backendTotal    *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a new Prometheus-based metrics recorder.
func NewPrometheusRecorder() *PrometheusRecorder {
	return &PrometheusRecorder{
		consultsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "consult_requests_total",
				Help: "Total number of consultations by final status and emergency flag",
			},
			[]string{"status", "emergency"},
		),
		consultDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "consult_duration_seconds",
				Help:    "End-to-end duration of consultations in seconds",
				Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
			},
			[]string{"status"},
		),
		attemptsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "consult_attempts_total",
				Help: "Total specialist generation attempts by specialty",
			},
			[]string{"specialty"},
		),
		backendTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_requests_total",
				Help: "Total completion backend calls by provider, component, and outcome",
			},
			[]string{"provider", "component", "outcome"},
		),
		backendDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backend_request_duration_seconds",
				Help:    "Duration of completion backend calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "component"},
		),
	}
}

// RecordConsult implements Recorder.
func (r *PrometheusRecorder) RecordConsult(status string, emergency bool, duration time.Duration) {
	r.consultsTotal.WithLabelValues(status, strconv.FormatBool(emergency)).Inc()
	r.consultDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordAttempts implements Recorder.
func (r *PrometheusRecorder) RecordAttempts(specialty string, attempts int) {
	if attempts <= 0 {
		return
	}
	r.attemptsTotal.WithLabelValues(specialty).Add(float64(attempts))
}

// RecordBackendRequest implements Recorder.
func (r *PrometheusRecorder) RecordBackendRequest(provider, component, outcome string, duration time.Duration) {
	r.backendTotal.WithLabelValues(provider, component, outcome).Inc()
	r.backendDuration.WithLabelValues(provider, component).Observe(duration.Seconds())
}

// NopRecorder discards all observations; used in tests and when metrics are
// disabled.
type NopRecorder struct{}

// RecordConsult implements Recorder.
func (NopRecorder) RecordConsult(string, bool, time.Duration) {}

// RecordAttempts implements Recorder.
func (NopRecorder) RecordAttempts(string, int) {}

// RecordBackendRequest implements Recorder.
func (NopRecorder) RecordBackendRequest(string, string, string, time.Duration) {}

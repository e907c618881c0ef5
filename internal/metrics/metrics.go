// Package metrics provides Prometheus instrumentation for the autoscaler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the autoscaler.
type Metrics struct {
	// Cycle metrics
	CyclesTotal   *prometheus.CounterVec
	CycleDuration prometheus.Histogram

	// Decision metrics
	DecisionsTotal *prometheus.CounterVec
	ScalingTotal   *prometheus.CounterVec

	// Prediction metrics
	PredictedCPU         prometheus.Gauge
	PredictionConfidence prometheus.Gauge

	// Cooldown state
	CooldownRemaining prometheus.Gauge

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates a Metrics instance and registers it with Prometheus.
func New() *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "autoscaler",
			Name:      "cycles_total",
			Help:      "Total number of autoscaling cycles.",
		}, []string{"status"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "autoscaler",
			Name:      "cycle_duration_seconds",
			Help:      "Autoscaling cycle duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14), // 50ms to ~7m
		}),
		DecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "autoscaler",
			Name:      "decisions_total",
			Help:      "Total number of scaling decisions.",
		}, []string{"action"}),
		ScalingTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "autoscaler",
			Name:      "scaling_actions_total",
			Help:      "Total number of executed scaling actions.",
		}, []string{"action", "result"}),
		PredictedCPU: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "autoscaler",
			Name:      "predicted_cpu_percent",
			Help:      "Most recent predicted CPU load.",
		}),
		PredictionConfidence: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "autoscaler",
			Name:      "prediction_confidence",
			Help:      "Confidence of the most recent prediction.",
		}),
		CooldownRemaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "autoscaler",
			Name:      "cooldown_remaining_seconds",
			Help:      "Seconds until the cooldown window elapses.",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "autoscaler",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "autoscaler",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	prometheus.MustRegister(
		m.CyclesTotal,
		m.CycleDuration,
		m.DecisionsTotal,
		m.ScalingTotal,
		m.PredictedCPU,
		m.PredictionConfidence,
		m.CooldownRemaining,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)

	return m
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordCycle records the outcome and duration of one cycle.
func (m *Metrics) RecordCycle(status string, seconds float64) {
	m.CyclesTotal.WithLabelValues(status).Inc()
	m.CycleDuration.Observe(seconds)
}

// RecordDecision records a policy decision.
func (m *Metrics) RecordDecision(action string) {
	m.DecisionsTotal.WithLabelValues(action).Inc()
}

// RecordScaling records an executed scaling attempt.
func (m *Metrics) RecordScaling(action, result string) {
	m.ScalingTotal.WithLabelValues(action, result).Inc()
}

// RecordPrediction records the latest prediction signal.
func (m *Metrics) RecordPrediction(predictedCPU, confidence float64) {
	m.PredictedCPU.Set(predictedCPU)
	m.PredictionConfidence.Set(confidence)
}

// RecordHTTPRequest records an HTTP request metric.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

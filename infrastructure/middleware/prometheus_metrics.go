// Package middleware provides cross-cutting concerns for the verification
// engine.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Em-Deesha/profverify/internal/ports"
)

// Metric names understood by PrometheusMetrics. Names outside this set are
// recorded under the generic operation vectors.
const (
	MetricVerifications      = "verifications_total"
	MetricEvidenceFetch      = "evidence_fetch_total"
	MetricProfileLookup      = "profile_lookup_total"
	MetricLLMRequests        = "llm_requests_total"
	MetricLLMTokens          = "llm_tokens_total"
	MetricCircuitEvents      = "llm_circuit_events_total"
	MetricCircuitState       = "llm_circuit_state"
	MetricConfidenceScore    = "verification_confidence_score"
	MetricLLMLatency         = "llm_latency_seconds"
	OperationEvidenceFetch   = "evidence_fetch"
	OperationVerification    = "verification"
	defaultUnknownLabelValue = "unknown"
)

// PrometheusMetrics implements the MetricsCollector interface using Prometheus.
// It exposes verification outcomes by decision path, evidence source health,
// profile lookup results and LLM usage.
type PrometheusMetrics struct {
	verifications    *prometheus.CounterVec
	evidenceFetches  *prometheus.CounterVec
	profileLookups   *prometheus.CounterVec
	llmRequests      *prometheus.CounterVec
	llmTokens        *prometheus.CounterVec
	circuitEvents    *prometheus.CounterVec
	circuitState     *prometheus.GaugeVec
	confidenceScore  prometheus.Histogram
	fetchDuration    *prometheus.HistogramVec
	llmLatency       *prometheus.HistogramVec
	verifyDuration   prometheus.Histogram
	operationLatency *prometheus.HistogramVec
	operationCounter *prometheus.CounterVec
	operationValues  *prometheus.HistogramVec
	systemGauges     *prometheus.GaugeVec
}

// NewPrometheusMetrics registers all metrics with reg. A nil reg uses the
// default Prometheus registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		// Verification outcomes.
		verifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricVerifications,
				Help: "Completed verifications by decision path (llm, heuristic, cache).",
			},
			[]string{"path"},
		),
		confidenceScore: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricConfidenceScore,
				Help:    "Distribution of returned confidence scores.",
				Buckets: prometheus.LinearBuckets(10, 10, 10),
			},
		),
		verifyDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "verification_duration_seconds",
				Help:    "End to end verification time.",
				Buckets: prometheus.DefBuckets,
			},
		),

		// Evidence gathering.
		evidenceFetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricEvidenceFetch,
				Help: "Evidence source calls by outcome.",
			},
			[]string{"source", "status"},
		),
		fetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "evidence_fetch_duration_seconds",
				Help:    "Evidence source call time.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		profileLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricProfileLookup,
				Help: "Profile database lookups by outcome (found, miss, unavailable).",
			},
			[]string{"status"},
		),

		// LLM usage.
		llmRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricLLMRequests,
				Help: "LLM requests by provider, model and status.",
			},
			[]string{"provider", "model", "status"},
		),
		llmTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricLLMTokens,
				Help: "LLM tokens consumed by provider, model and direction.",
			},
			[]string{"provider", "model", "token_type"},
		),
		llmLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricLLMLatency,
				Help:    "LLM request time.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "model", "status"},
		),
		circuitEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricCircuitEvents,
				Help: "LLM circuit breaker outcomes by provider.",
			},
			[]string{"provider", "event"},
		),
		circuitState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: MetricCircuitState,
				Help: "LLM circuit breaker state (0 closed, 1 open, 2 half open).",
			},
			[]string{"provider"},
		),

		// Catch-all vectors for metric names without a dedicated series.
		operationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "profverify_operation_duration_seconds",
				Help:    "Execution time of miscellaneous operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		operationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profverify_operations_total",
				Help: "Counts of miscellaneous events.",
			},
			[]string{"operation", "status"},
		),
		operationValues: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "profverify_operation_values",
				Help:    "Observed values of miscellaneous metrics.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"metric"},
		),
		systemGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "profverify_system_state",
				Help: "Current values of miscellaneous gauges.",
			},
			[]string{"metric"},
		),
	}
}

// label returns labels[key], or "unknown" when missing or empty.
func label(labels map[string]string, key string) string {
	if v := labels[key]; v != "" {
		return v
	}
	return defaultUnknownLabelValue
}

// RecordLatency implements the MetricsCollector interface. Evidence fetches
// and whole verifications have dedicated histograms.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	switch operation {
	case OperationEvidenceFetch:
		pm.fetchDuration.WithLabelValues(label(labels, "source")).Observe(duration.Seconds())
	case OperationVerification:
		pm.verifyDuration.Observe(duration.Seconds())
	default:
		pm.operationLatency.WithLabelValues(operation).Observe(duration.Seconds())
	}
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case MetricVerifications:
		pm.verifications.WithLabelValues(label(labels, "path")).Add(value)
	case MetricEvidenceFetch:
		pm.evidenceFetches.WithLabelValues(label(labels, "source"), label(labels, "status")).Add(value)
	case MetricProfileLookup:
		pm.profileLookups.WithLabelValues(label(labels, "status")).Add(value)
	case MetricLLMRequests:
		pm.llmRequests.WithLabelValues(
			label(labels, "provider"),
			label(labels, "model"),
			label(labels, "status"),
		).Add(value)
	case MetricLLMTokens:
		pm.llmTokens.WithLabelValues(
			label(labels, "provider"),
			label(labels, "model"),
			label(labels, "token_type"),
		).Add(value)
	case MetricCircuitEvents:
		pm.circuitEvents.WithLabelValues(label(labels, "provider"), label(labels, "event")).Add(value)
	default:
		status := labels["status"]
		if status == "" {
			status = "success"
		}
		pm.operationCounter.WithLabelValues(metric, status).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case MetricCircuitState:
		pm.circuitState.WithLabelValues(label(labels, "provider")).Set(value)
	default:
		pm.systemGauges.WithLabelValues(metric).Set(value)
	}
}

// RecordHistogram implements the MetricsCollector interface by recording
// values in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case MetricConfidenceScore:
		pm.confidenceScore.Observe(value)
	case MetricLLMLatency:
		pm.llmLatency.WithLabelValues(
			label(labels, "provider"),
			label(labels, "model"),
			label(labels, "status"),
		).Observe(value)
	default:
		pm.operationValues.WithLabelValues(metric).Observe(value)
	}
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

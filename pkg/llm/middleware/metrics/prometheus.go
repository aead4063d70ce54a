package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements the Recorder interface using Prometheus
// metrics.
type PrometheusRecorder struct {
	requestsTotal   *prometheus.CounterVec
	tokensTotal     *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a new Prometheus-based metrics recorder.
// Metrics register with the default registry, so construct it once.
func NewPrometheusRecorder() *PrometheusRecorder {
	return &PrometheusRecorder{
		requestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_requests_total",
				Help: "Total number of LLM requests by model, plan, phase, and status",
			},
			[]string{"model", "plan_id", "phase", "status", "error_type"},
		),
		tokensTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_tokens_total",
				Help: "Total number of tokens used in LLM requests",
			},
			[]string{"model", "plan_id", "phase", "type"},
		),
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_request_duration_seconds",
				Help:    "Duration of LLM requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model", "plan_id", "phase"},
		),
	}
}

// ObserveRequest records metrics for a completed LLM request.
func (p *PrometheusRecorder) ObserveRequest(
	model, planID, phase string,
	promptTokens, completionTokens int,
	success bool,
	errorType string,
	duration time.Duration,
) {
	status := "success"
	if !success {
		status = "error"
	}

	p.requestsTotal.WithLabelValues(model, planID, phase, status, errorType).Inc()

	if success {
		p.tokensTotal.WithLabelValues(model, planID, phase, "prompt").Add(float64(promptTokens))
		p.tokensTotal.WithLabelValues(model, planID, phase, "completion").Add(float64(completionTokens))
	}

	p.requestDuration.WithLabelValues(model, planID, phase).Observe(duration.Seconds())
}

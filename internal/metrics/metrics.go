// Package metrics exposes Prometheus collectors for calculations, webhook
// deliveries and HTTP requests.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "kpicalc_"

	ResultSuccess = "success"
	ResultInvalid = "invalid"

	WebhookDelivered = "delivered"
	WebhookRejected  = "rejected"
	WebhookFailed    = "failed"
	WebhookSkipped   = "skipped"
)

var (
	registerOnce sync.Once

	calculationsTotal  *prometheus.CounterVec
	calculationLatency *prometheus.HistogramVec

	webhookTotal   *prometheus.CounterVec
	webhookLatency *prometheus.HistogramVec

	httpRequestsTotal  *prometheus.CounterVec
	httpRequestLatency *prometheus.HistogramVec
)

// Init creates the collectors and registers them with the default registry.
// It is safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		calculationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "calculations_total",
				Help: "Total KPI calculations by policy and result",
			},
			[]string{"policy", "result"},
		)
		calculationLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "calculation_latency_seconds",
				Help:    "KPI calculation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		webhookTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "webhook_deliveries_total",
				Help: "Total webhook delivery attempts by outcome",
			},
			[]string{"outcome"},
		)
		webhookLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "webhook_latency_seconds",
				Help:    "Webhook delivery latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		)
		httpRequestsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "Total HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		)
		httpRequestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_latency_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		)
		prometheus.MustRegister(
			calculationsTotal,
			calculationLatency,
			webhookTotal,
			webhookLatency,
			httpRequestsTotal,
			httpRequestLatency,
		)
	})
}

// ObserveCalculation records a calculation outcome and duration.
func ObserveCalculation(policy, result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if calculationsTotal != nil {
		calculationsTotal.WithLabelValues(policy, result).Inc()
	}
	if calculationLatency != nil {
		calculationLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveWebhook records a webhook delivery outcome and duration.
func ObserveWebhook(outcome string, duration time.Duration) {
	if outcome == "" {
		outcome = WebhookFailed
	}
	if webhookTotal != nil {
		webhookTotal.WithLabelValues(outcome).Inc()
	}
	if webhookLatency != nil && outcome != WebhookSkipped {
		webhookLatency.WithLabelValues(outcome).Observe(duration.Seconds())
	}
}

// ObserveHTTP records an HTTP request.
func ObserveHTTP(route string, code int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	if httpRequestsTotal != nil {
		httpRequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	}
	if httpRequestLatency != nil {
		httpRequestLatency.WithLabelValues(route).Observe(duration.Seconds())
	}
}

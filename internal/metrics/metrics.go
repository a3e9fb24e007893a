package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	webhookRequests *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	authDenials     *prometheus.CounterVec
	normalization   *prometheus.CounterVec
	sinkFailures    *prometheus.CounterVec
	selfHeal        *prometheus.CounterVec
}

// New registers all collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

// NewWithRegistry registers the pipeline collectors on reg.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		webhookRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hookline_webhook_requests_total",
				Help: "Webhook deliveries by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hookline_webhook_request_duration_seconds",
				Help:    "Webhook handling latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),

		authDenials: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hookline_auth_denials_total",
				Help: "Webhook authentication denials by internal reason",
			},
			[]string{"reason"},
		),

		normalization: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hookline_normalization_total",
				Help: "Event normalization results (mapped, unmapped, degraded)",
			},
			[]string{"result"},
		),

		sinkFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hookline_sink_failures_total",
				Help: "Best-effort sink write failures by sink",
			},
			[]string{"sink"},
		),

		selfHeal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hookline_self_heal_total",
				Help: "Unknown-actor self-heal attempts by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveWebhookRequest(endpoint, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.webhookRequests.WithLabelValues(endpoint, outcome).Inc()
	m.requestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

func (m *Metrics) IncAuthDenial(reason string) {
	if m == nil {
		return
	}
	m.authDenials.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncNormalization(result string) {
	if m == nil {
		return
	}
	m.normalization.WithLabelValues(result).Inc()
}

func (m *Metrics) IncSinkFailure(sink string) {
	if m == nil {
		return
	}
	m.sinkFailures.WithLabelValues(sink).Inc()
}

func (m *Metrics) IncSelfHeal(outcome string) {
	if m == nil {
		return
	}
	m.selfHeal.WithLabelValues(outcome).Inc()
}

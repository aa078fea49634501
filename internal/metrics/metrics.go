package metrics

import (
	"net/http"
	"time"

	"github.com/harun/toolgate/pkg/toolexecutor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "toolgate"

// Metrics holds the Prometheus collectors for tool invocations and consent.
// It implements toolexecutor.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	ToolInvocationsTotal   *prometheus.CounterVec
	ToolInvocationDuration *prometheus.HistogramVec
	ConsentDecisionsTotal  *prometheus.CounterVec
	ConsentSupersededTotal prometheus.Counter
	ConsentPending         prometheus.Gauge
}

var _ toolexecutor.Recorder = (*Metrics)(nil)

// NewMetrics creates and registers all metrics on a private registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		ToolInvocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_invocations_total",
				Help:      "Tool calls that reached a terminal state, by outcome (ok, error, cancelled).",
			},
			[]string{"tool", "outcome"},
		),
		ToolInvocationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tool_invocation_duration_seconds",
				Help:      "Time from normalization to terminal state, consent wait included.",
				Buckets:   []float64{.005, .01, .05, .1, .5, 1, 5, 15, 60, 300},
			},
			[]string{"tool"},
		),
		ConsentDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "consent_decisions_total",
				Help:      "Settled consent requests by decision and reason.",
			},
			[]string{"decision", "reason"},
		),
		ConsentSupersededTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "consent_superseded_total",
				Help:      "Consent requests cancelled because a newer request replaced them.",
			},
		),
		ConsentPending: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "consent_pending",
				Help:      "1 while a consent request waits for a decision.",
			},
		),
	}

	m.registerMetrics()

	return m
}

func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(
		m.ToolInvocationsTotal,
		m.ToolInvocationDuration,
		m.ConsentDecisionsTotal,
		m.ConsentSupersededTotal,
		m.ConsentPending,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// RecordInvocation implements toolexecutor.Recorder
func (m *Metrics) RecordInvocation(toolName, outcome string, d time.Duration) {
	m.ToolInvocationsTotal.WithLabelValues(toolName, outcome).Inc()
	m.ToolInvocationDuration.WithLabelValues(toolName).Observe(d.Seconds())
}

// RecordConsent implements toolexecutor.Recorder
func (m *Metrics) RecordConsent(decision toolexecutor.Decision, reason toolexecutor.ConsentReason) {
	m.ConsentDecisionsTotal.WithLabelValues(string(decision), string(reason)).Inc()
	m.ConsentPending.Set(0)
}

// RecordSuperseded implements toolexecutor.Recorder
func (m *Metrics) RecordSuperseded() {
	m.ConsentSupersededTotal.Inc()
}

// RecordConsentPresented marks a request as waiting
func (m *Metrics) RecordConsentPresented() {
	m.ConsentPending.Set(1)
}

// TrackGatewayClients exports count as the number of open operator connections
func (m *Metrics) TrackGatewayClients(count func() int) error {
	return m.registry.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gateway_clients_connected",
			Help:      "Operator connections currently open on the gateway.",
		},
		func() float64 { return float64(count()) },
	))
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

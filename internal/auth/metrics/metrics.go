// Package metrics holds the Prometheus instruments for the auth flows and
// serves them on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Flow names used as the "flow" label.
const (
	FlowRegister      = "register"
	FlowPasswordLogin = "password_login"
	FlowCodeRequest   = "code_request"
	FlowCodeRedeem    = "code_redeem"
	FlowVerifySession = "verify_session"
)

// Outcome for a flow that did not fail. Failures are labelled with the
// stable error code of the returned error.
const OutcomeSuccess = "success"

// Metrics is safe to use as a nil pointer; every recorder is then a no-op.
type Metrics struct {
	registry *prometheus.Registry

	flows           *prometheus.CounterVec
	flowDuration    *prometheus.HistogramVec
	codesIssued     prometheus.Counter
	deliveryFailure *prometheus.CounterVec
	codesSwept      prometheus.Counter
}

// New builds a private registry with the Go and process collectors plus the
// auth instruments, so tests and multiple instances never collide on the
// default registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: reg,
		flows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_flow_total",
				Help: "Total number of auth flow invocations by flow and outcome",
			},
			[]string{"flow", "outcome"},
		),
		flowDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "auth_flow_duration_seconds",
				Help:    "Auth flow duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"flow"},
		),
		codesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_one_time_codes_issued_total",
			Help: "One-time codes persisted and handed to the dispatcher",
		}),
		deliveryFailure: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_code_delivery_failures_total",
				Help: "One-time code deliveries that failed, by reason",
			},
			[]string{"reason"},
		),
		codesSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_one_time_codes_swept_total",
			Help: "Used or expired one-time codes removed by the sweeper",
		}),
	}

	reg.MustRegister(m.flows, m.flowDuration, m.codesIssued, m.deliveryFailure, m.codesSwept)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveFlow counts one flow invocation and records its duration.
func (m *Metrics) ObserveFlow(flow, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.flows.WithLabelValues(flow, outcome).Inc()
	m.flowDuration.WithLabelValues(flow).Observe(took.Seconds())
}

func (m *Metrics) CodeIssued() {
	if m == nil {
		return
	}
	m.codesIssued.Inc()
}

// DeliveryFailed is labelled "timeout" or "error".
func (m *Metrics) DeliveryFailed(reason string) {
	if m == nil {
		return
	}
	m.deliveryFailure.WithLabelValues(reason).Inc()
}

func (m *Metrics) CodesSwept(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.codesSwept.Add(float64(n))
}

// Handler serves the registry in the Prometheus text or OpenMetrics format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

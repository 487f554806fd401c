package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors. All recording methods
// are safe to call on a nil receiver so components can run uninstrumented
// in tests.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	PairingCodesIssued prometheus.Counter
	PairingClaims      *prometheus.CounterVec
	GatewayRequests    *prometheus.CounterVec

	AuditEnqueuedTotal *prometheus.CounterVec
	AuditFlushedTotal  prometheus.Counter
	AuditDeadLettered  prometheus.Counter

	registry *prometheus.Registry
}

func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alarmbriefing_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "alarmbriefing_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		PairingCodesIssued: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "alarmbriefing_pairing_codes_issued_total",
				Help: "Total number of pairing codes issued",
			},
		),
		PairingClaims: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alarmbriefing_pairing_claims_total",
				Help: "Pairing claim attempts by result",
			},
			[]string{"result"},
		),
		GatewayRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alarmbriefing_gateway_requests_total",
				Help: "Bot gateway requests by credential result",
			},
			[]string{"result"},
		),
		AuditEnqueuedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alarmbriefing_audit_enqueued_total",
				Help: "Audit entries recorded by delivery path",
			},
			[]string{"result"},
		),
		AuditFlushedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "alarmbriefing_audit_flushed_total",
				Help: "Audit entries flushed from the stream to the database",
			},
		),
		AuditDeadLettered: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "alarmbriefing_audit_dead_lettered_total",
				Help: "Audit entries the database rejected and the flush dropped",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.PairingCodesIssued,
		m.PairingClaims,
		m.GatewayRequests,
		m.AuditEnqueuedTotal,
		m.AuditFlushedTotal,
		m.AuditDeadLettered,
	)

	return m
}

func (m *Metrics) PairingCodeIssued() {
	if m == nil {
		return
	}
	m.PairingCodesIssued.Inc()
}

func (m *Metrics) PairingClaim(result string) {
	if m == nil {
		return
	}
	m.PairingClaims.WithLabelValues(result).Inc()
}

func (m *Metrics) GatewayRequest(result string) {
	if m == nil {
		return
	}
	m.GatewayRequests.WithLabelValues(result).Inc()
}

func (m *Metrics) AuditEnqueued(result string) {
	if m == nil {
		return
	}
	m.AuditEnqueuedTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) AuditFlushed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.AuditFlushedTotal.Add(float64(n))
}

func (m *Metrics) AuditDeadLetter() {
	if m == nil {
		return
	}
	m.AuditDeadLettered.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request count and latency labelled by the matched
// chi route pattern, so path parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

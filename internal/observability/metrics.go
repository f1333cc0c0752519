package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "reception"

// Metrics holds the Prometheus collectors for HTTP traffic and signaling. All
// methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errors          *prometheus.CounterVec

	connections     prometheus.Gauge
	activeCalls     prometheus.Gauge
	callsEnded      *prometheus.CounterVec
	callDuration    prometheus.Histogram
	callRequests    *prometheus.CounterVec
	signalsRelayed  *prometheus.CounterVec
	signalsRejected *prometheus.CounterVec
	framesDropped   *prometheus.CounterVec
	callLogWrites   *prometheus.CounterVec
}

// NewMetrics registers collectors on a dedicated registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"path", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors returned to callers by domain code.",
		}, []string{"path", "method", "code"}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_connections",
			Help:      "Open signaling connections.",
		}),
		activeCalls: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "calls_active",
			Help:      "Calls that have started and not ended.",
		}),
		callsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_ended_total",
			Help:      "Ended calls by terminal status.",
		}, []string{"status"}),
		callDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Duration of ended calls.",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1200, 3600},
		}),
		callRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "call_requests_total",
			Help:      "Call request transitions by outcome.",
		}, []string{"outcome"}),
		signalsRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_relayed_total",
			Help:      "Signals forwarded between participants.",
		}, []string{"kind"}),
		signalsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_rejected_total",
			Help:      "Signals refused for unknown calls or non-participants.",
		}, []string{"kind"}),
		framesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Outbound frames dropped because a send buffer was full.",
		}, []string{"type"}),
		callLogWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "call_log_writes_total",
			Help:      "Call log persistence attempts by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.requestDuration, m.errors,
		m.connections, m.activeCalls, m.callsEnded, m.callDuration,
		m.callRequests, m.signalsRelayed, m.signalsRejected,
		m.framesDropped, m.callLogWrites,
	)
	return m
}

// Registry exposes the underlying registry for tests and custom exporters.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(path, method, code).Inc()
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

func (m *Metrics) CallStarted() {
	if m == nil {
		return
	}
	m.activeCalls.Inc()
}

func (m *Metrics) CallEnded(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.activeCalls.Dec()
	m.callsEnded.WithLabelValues(status).Inc()
	m.callDuration.Observe(duration.Seconds())
}

func (m *Metrics) CallRequest(outcome string) {
	if m == nil {
		return
	}
	m.callRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SignalForwarded(kind string) {
	if m == nil {
		return
	}
	m.signalsRelayed.WithLabelValues(kind).Inc()
}

func (m *Metrics) SignalRejected(kind string) {
	if m == nil {
		return
	}
	m.signalsRejected.WithLabelValues(kind).Inc()
}

func (m *Metrics) FrameDropped(msgType string) {
	if m == nil {
		return
	}
	m.framesDropped.WithLabelValues(msgType).Inc()
}

// CallLogWrite counts one persistence attempt.
func (m *Metrics) CallLogWrite(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.callLogWrites.WithLabelValues(result).Inc()
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments socket sessions and request/response calls.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	framesReceived    *prometheus.CounterVec
	framesSent        *prometheus.CounterVec
	malformedFrames   prometheus.Counter
	reconnectAttempts prometheus.Counter
	connected         prometheus.Gauge
	requests          *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		framesReceived: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parley",
			Name:      "frames_received_total",
			Help:      "Inbound socket frames by type.",
		}, []string{"type"}),
		framesSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parley",
			Name:      "frames_sent_total",
			Help:      "Outbound socket frames by type.",
		}, []string{"type"}),
		malformedFrames: f.NewCounter(prometheus.CounterOpts{
			Namespace: "parley",
			Name:      "frames_malformed_total",
			Help:      "Inbound frames dropped because they failed to decode.",
		}),
		reconnectAttempts: f.NewCounter(prometheus.CounterOpts{
			Namespace: "parley",
			Name:      "reconnect_attempts_total",
			Help:      "Scheduled socket reconnect attempts.",
		}),
		connected: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "parley",
			Name:      "sessions_connected",
			Help:      "Sessions currently authenticated.",
		}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parley",
			Name:      "api_requests_total",
			Help:      "Request/response calls by route and status code.",
		}, []string{"route", "code"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "parley",
			Name:      "api_request_duration_seconds",
			Help:      "Request/response call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

func (m *Metrics) FrameReceived(frameType string) {
	if m == nil {
		return
	}
	m.framesReceived.WithLabelValues(frameType).Inc()
}

func (m *Metrics) FrameSent(frameType string) {
	if m == nil {
		return
	}
	m.framesSent.WithLabelValues(frameType).Inc()
}

func (m *Metrics) MalformedFrame() {
	if m == nil {
		return
	}
	m.malformedFrames.Inc()
}

func (m *Metrics) ReconnectScheduled() {
	if m == nil {
		return
	}
	m.reconnectAttempts.Inc()
}

func (m *Metrics) SessionConnected() {
	if m == nil {
		return
	}
	m.connected.Inc()
}

func (m *Metrics) SessionDisconnected() {
	if m == nil {
		return
	}
	m.connected.Dec()
}

func (m *Metrics) Request(route, code string, seconds float64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, code).Inc()
	m.requestDuration.WithLabelValues(route).Observe(seconds)
}

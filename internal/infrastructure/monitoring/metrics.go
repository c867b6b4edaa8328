package monitoring

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for dispatch and WebSocket
// sessions. All record methods are no-ops on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP dispatch metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec
	Refreshes       *prometheus.CounterVec

	// WebSocket metrics
	WSConnections  prometheus.Gauge
	WSTransitions  *prometheus.CounterVec
	WSFrames       *prometheus.CounterVec
	WSPingFailures prometheus.Counter
	WSReconnects   *prometheus.CounterVec

	startTime time.Time

	// Snapshot for the CLI summary
	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds running totals that are cheap to print.
type Snapshot struct {
	TotalRequests     int64
	TotalErrors       int64
	Refreshes         int64
	ActiveConnections int64
	TotalDuration     float64 // seconds, sum over all requests
	Uptime            time.Duration
}

// AverageDuration is the mean request duration in seconds.
func (s Snapshot) AverageDuration() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return s.TotalDuration / float64(s.TotalRequests)
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.NewRegistry())
}

// NewMetricsWith registers the collectors on reg.
func NewMetricsWith(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netkit_http_requests_total",
				Help: "Total number of HTTP requests sent, by method and status",
			},
			[]string{"method", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "netkit_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "netkit_http_response_size_bytes",
				Help:    "HTTP response body size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method"},
		),
		Refreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netkit_credential_refreshes_total",
				Help: "Credential refresh attempts after 401/403, by outcome",
			},
			[]string{"outcome"},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "netkit_ws_connections",
				Help: "Number of connected WebSocket sessions",
			},
		),
		WSTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netkit_ws_state_transitions_total",
				Help: "WebSocket session state transitions, by target state",
			},
			[]string{"state"},
		),
		WSFrames: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netkit_ws_frames_total",
				Help: "WebSocket data frames, by direction and type",
			},
			[]string{"direction", "type"},
		),
		WSPingFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "netkit_ws_ping_failures_total",
				Help: "Keep-alive pings that got no pong",
			},
		),
		WSReconnects: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netkit_ws_reconnects_total",
				Help: "Reconnect attempts, by outcome",
			},
			[]string{"outcome"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "netkit_uptime_seconds",
			Help: "Seconds since the metrics were created",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordRequest records one sent request. status 0 means no response.
func (m *Metrics) RecordRequest(method string, status int, duration time.Duration, respSize int) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.RequestsTotal.WithLabelValues(method, label).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(duration.Seconds())
	m.ResponseSize.WithLabelValues(method).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	if status == 0 || status >= 400 {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordRefresh records a credential refresh outcome: "success", "none" or "error".
func (m *Metrics) RecordRefresh(outcome string) {
	if m == nil {
		return
	}
	m.Refreshes.WithLabelValues(outcome).Inc()
	m.mu.Lock()
	m.snapshot.Refreshes++
	m.mu.Unlock()
}

// RecordWSTransition counts a state transition.
func (m *Metrics) RecordWSTransition(state string) {
	if m == nil {
		return
	}
	m.WSTransitions.WithLabelValues(state).Inc()
}

// RecordWSFrame counts a data frame; direction is "in" or "out".
func (m *Metrics) RecordWSFrame(direction, frameType string) {
	if m == nil {
		return
	}
	m.WSFrames.WithLabelValues(direction, frameType).Inc()
}

func (m *Metrics) IncWSPingFailures() {
	if m == nil {
		return
	}
	m.WSPingFailures.Inc()
}

// RecordWSReconnect records a reconnect outcome: "success" or "failed".
func (m *Metrics) RecordWSReconnect(outcome string) {
	if m == nil {
		return
	}
	m.WSReconnects.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// Snapshot returns the running totals.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.snapshot
	s.Uptime = time.Since(m.startTime)
	return s
}

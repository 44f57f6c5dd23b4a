package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics regroupe les compteurs du client. Un registre par instance, pas de globals.
// Toutes les méthodes acceptent un receveur nil.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	probesTotal        *prometheus.CounterVec
	expirationsTotal   prometheus.Counter
	feedRefreshesTotal *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cenackle_client_http_requests_total",
			Help: "Tracks the number of backend HTTP requests.",
		}, []string{"method", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cenackle_client_http_request_duration_seconds",
			Help:    "Tracks the latencies for backend HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		probesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cenackle_client_session_probes_total",
			Help: "Session liveness probes by trigger and result.",
		}, []string{"trigger", "result"}),
		expirationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cenackle_client_session_expirations_total",
			Help: "Authenticated to Anonymous transitions.",
		}),
		feedRefreshesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cenackle_client_feed_refreshes_total",
			Help: "Scheduled feed refreshes by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestsTotal,
		m.requestDuration,
		m.probesTotal,
		m.expirationsTotal,
		m.feedRefreshesTotal,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// ObserveRequest : code 0 = erreur de transport.
func (m *Metrics) ObserveRequest(method string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	m.requestsTotal.WithLabelValues(method, label).Inc()
	m.requestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveProbe(trigger string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.probesTotal.WithLabelValues(trigger, result).Inc()
}

func (m *Metrics) IncExpirations() {
	if m == nil {
		return
	}
	m.expirationsTotal.Inc()
}

func (m *Metrics) ObserveFeedRefresh(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.feedRefreshesTotal.WithLabelValues(result).Inc()
}

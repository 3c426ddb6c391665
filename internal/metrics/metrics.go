// Package metrics exposes the relay's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Drop reasons.
const (
	DropNoPartner      = "no_partner"
	DropStaleCandidate = "stale_candidate"
	DropQueueFull      = "queue_full"
	DropRateLimited    = "rate_limited"
	DropInvalid        = "invalid"
)

// Hang-up causes.
const (
	CauseExplicit   = "explicit"
	CauseDisconnect = "disconnect"
	CauseEvicted    = "evicted"
	CauseTimeout    = "timeout"
)

const namespace = "omagle"

// Metrics holds the relay collectors on a private registry.
//
// All methods are safe to call on a nil *Metrics, which records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Connections        prometheus.Gauge
	Sessions           prometheus.Gauge
	Waiting            prometheus.Gauge
	Pairings           prometheus.Counter
	Forwarded          *prometheus.CounterVec
	Dropped            *prometheus.CounterVec
	CandidatesBuffered prometheus.Counter
	HangUps            *prometheus.CounterVec
}

// New creates the collectors and registers them, together with the Go runtime
// and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Live signaling connections.",
		}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Live two-party sessions.",
		}),
		Waiting: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "waiting",
			Help:      "1 while a connection holds the waiting slot.",
		}),
		Pairings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pairings_total",
			Help:      "Sessions created.",
		}),
		Forwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_forwarded_total",
			Help:      "Messages delivered to a partner, by kind.",
		}, []string{"kind"}),
		Dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dropped_total",
			Help:      "Inbound messages dropped, by reason.",
		}, []string{"reason"}),
		CandidatesBuffered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_buffered_total",
			Help:      "Candidates queued until the receiving side was ready.",
		}),
		HangUps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hangups_total",
			Help:      "Sessions ended, by cause.",
		}, []string{"cause"}),
	}

	m.registry.MustRegister(
		m.Connections,
		m.Sessions,
		m.Waiting,
		m.Pairings,
		m.Forwarded,
		m.Dropped,
		m.CandidatesBuffered,
		m.HangUps,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "metrics not configured", http.StatusInternalServerError)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IncForwarded(kind string) {
	if m == nil {
		return
	}
	m.Forwarded.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncDropped(reason string) {
	if m == nil {
		return
	}
	m.Dropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncHangUp(cause string) {
	if m == nil {
		return
	}
	m.HangUps.WithLabelValues(cause).Inc()
}

func (m *Metrics) IncPairing() {
	if m == nil {
		return
	}
	m.Pairings.Inc()
}

func (m *Metrics) IncBuffered() {
	if m == nil {
		return
	}
	m.CandidatesBuffered.Inc()
}

// SetOccupancy updates the gauges from a relay snapshot.
func (m *Metrics) SetOccupancy(connections, sessions int, waiting bool) {
	if m == nil {
		return
	}
	m.Connections.Set(float64(connections))
	m.Sessions.Set(float64(sessions))
	if waiting {
		m.Waiting.Set(1)
	} else {
		m.Waiting.Set(0)
	}
}

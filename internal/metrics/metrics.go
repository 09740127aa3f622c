// Package metrics exposes relay counters in the prometheus text format.
package metrics

import (
	"net/http"
	"sync"

	"github.com/cwrk-planet/room-relay/internal/relay"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "room_relay"

// Metrics implements relay.Observer on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	// guards the per-room gauge between Dec and Delete
	sessMu   sync.Mutex
	sessions *prometheus.GaugeVec
	opened   prometheus.Counter
	rejected *prometheus.CounterVec
	routed   *prometheus.CounterVec
	dropped  *prometheus.CounterVec
}

var _ relay.Observer = (*Metrics)(nil)

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		sessions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently active, per room.",
		}, []string{"room"}),
		opened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_opened_total",
			Help:      "Sessions admitted since start.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admissions_rejected_total",
			Help:      "Connections refused before admission.",
		}, []string{"reason"}),
		routed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_routed_total",
			Help:      "Inbound messages published to a room.",
		}, []string{"type"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dropped_total",
			Help:      "Messages that were not delivered.",
		}, []string{"reason"}),
	}
	m.reg.MustRegister(
		m.sessions, m.opened, m.rejected, m.routed, m.dropped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) SessionOpened(roomID string) {
	m.opened.Inc()

	m.sessMu.Lock()
	defer m.sessMu.Unlock()
	m.sessions.WithLabelValues(roomID).Inc()
}

func (m *Metrics) SessionClosed(roomID string) {
	m.sessMu.Lock()
	defer m.sessMu.Unlock()

	g := m.sessions.WithLabelValues(roomID)
	g.Dec()
	// keep the label set bounded by live rooms
	if gaugeValue(g) <= 0 {
		m.sessions.DeleteLabelValues(roomID)
	}
}

func (m *Metrics) AdmissionRejected(reason string) { m.rejected.WithLabelValues(reason).Inc() }
func (m *Metrics) MessageRouted(msgType string)    { m.routed.WithLabelValues(msgType).Inc() }
func (m *Metrics) MessageDropped(reason string)    { m.dropped.WithLabelValues(reason).Inc() }

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler exposes the registry at /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

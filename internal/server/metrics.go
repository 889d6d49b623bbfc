package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"SpiritTalk/internal/dialogue"
	"SpiritTalk/internal/game"
)

// Metrics counts room activity. It satisfies game.Observer.
type Metrics struct {
	reg *prometheus.Registry

	lines         *prometheus.CounterVec
	conversations *prometheus.CounterVec
	links         *prometheus.CounterVec
	collected     *prometheus.CounterVec
	actions       *prometheus.CounterVec
	inbound       *prometheus.CounterVec
	limited       prometheus.Counter
	connections   prometheus.Gauge
	reloads       *prometheus.CounterVec
}

var _ game.Observer = (*Metrics)(nil)

// NewMetrics registers collectors on a private registry. rooms, if set,
// is sampled for the live room gauge.
func NewMetrics(rooms func() int) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		lines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spirittalk_lines_shown_total",
			Help: "Dialogue parts shown, by talker.",
		}, []string{"talker"}),
		conversations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spirittalk_conversations_started_total",
			Help: "Talkers that started talking, by talker.",
		}, []string{"talker"}),
		links: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spirittalk_links_triggered_total",
			Help: "Links clicked in dialogue text.",
		}, []string{"talker", "link"}),
		collected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spirittalk_collected_total",
			Help: "Collectables picked up.",
		}, []string{"collectable"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spirittalk_actions_applied_total",
			Help: "Authored actions carried out, by kind.",
		}, []string{"kind"}),
		inbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spirittalk_ws_messages_total",
			Help: "Websocket messages received, by type.",
		}, []string{"type"}),
		limited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "spirittalk_ws_rate_limited_total",
			Help: "Websocket messages dropped by the rate limiter.",
		}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "spirittalk_ws_connections",
			Help: "Open websocket connections.",
		}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spirittalk_graph_reloads_total",
			Help: "Graph file reloads, by result.",
		}, []string{"result"}),
	}
	m.reg.MustRegister(m.lines, m.conversations, m.links, m.collected, m.actions,
		m.inbound, m.limited, m.connections, m.reloads)
	if rooms != nil {
		m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "spirittalk_rooms",
			Help: "Live rooms.",
		}, func() float64 { return float64(rooms()) }))
	}
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) LineShown(_, talker string) { m.lines.WithLabelValues(talker).Inc() }

func (m *Metrics) ConversationStarted(_, talker string) {
	m.conversations.WithLabelValues(talker).Inc()
}

func (m *Metrics) LinkTriggered(_, talker, link string) {
	m.links.WithLabelValues(talker, link).Inc()
}

func (m *Metrics) Collected(_, collectable string) {
	m.collected.WithLabelValues(collectable).Inc()
}

func (m *Metrics) ActionApplied(_ string, a dialogue.Action) {
	m.actions.WithLabelValues(string(a.Kind)).Inc()
}

func (m *Metrics) received(typ string) { m.inbound.WithLabelValues(typ).Inc() }
func (m *Metrics) rateLimited() { m.limited.Inc() }
func (m *Metrics) connected() { m.connections.Inc() }
func (m *Metrics) disconnected() { m.connections.Dec() }

func (m *Metrics) reloaded(ok bool) {
	if ok {
		m.reloads.WithLabelValues("ok").Inc()
		return
	}
	m.reloads.WithLabelValues("error").Inc()
}

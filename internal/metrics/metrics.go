package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Relay - счетчики relay; регистрируются в переданном registerer
type Relay struct {
	ConnectionsActive prometheus.Gauge
	Messages          *prometheus.CounterVec
	SessionsCreated   prometheus.Counter
	Joins             *prometheus.CounterVec
	PlaysForwarded    prometheus.Counter
	Rejections        *prometheus.CounterVec
	Undeliverable     prometheus.Counter
}

func NewRelay(reg prometheus.Registerer) *Relay {
	f := promauto.With(reg)
	return &Relay{
		ConnectionsActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "relay_connections_active",
			Help: "Open websocket connections held by this instance.",
		}),
		Messages: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_messages_total",
			Help: "Inbound relay messages by type.",
		}, []string{"type"}),
		SessionsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "relay_sessions_created_total",
			Help: "Game sessions created by start.",
		}),
		Joins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_joins_total",
			Help: "Join attempts by result.",
		}, []string{"result"}),
		PlaysForwarded: f.NewCounter(prometheus.CounterOpts{
			Name: "relay_plays_forwarded_total",
			Help: "Play messages forwarded to the other participant.",
		}),
		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_rejections_total",
			Help: "Error notices sent to clients by code.",
		}, []string{"code"}),
		Undeliverable: f.NewCounter(prometheus.CounterOpts{
			Name: "relay_undeliverable_total",
			Help: "Deliveries dropped because the target connection is gone.",
		}),
	}
}

// Message учитывает входящее сообщение; неизвестные типы сводятся в одну метку
func (m *Relay) Message(msgType string) {
	switch msgType {
	case "start", "join", "play":
	default:
		msgType = "other"
	}
	m.Messages.WithLabelValues(msgType).Inc()
}

func (m *Relay) Join(result string) {
	m.Joins.WithLabelValues(result).Inc()
}

func (m *Relay) Rejection(code string) {
	m.Rejections.WithLabelValues(code).Inc()
}

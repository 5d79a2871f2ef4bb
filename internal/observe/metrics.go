package observe

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	onlineUsers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_online_users",
		Help: "Number of connections currently in the registry",
	})

	messagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Total broadcast payloads by origin",
		},
		[]string{"origin"}, // local|remote|system
	)

	deliveriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_deliveries_total",
		Help: "Total payloads enqueued to recipients",
	})

	droppedMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_dropped_messages_total",
			Help: "Total deliveries skipped by reason",
		},
		[]string{"reason"}, // closed|overflow
	)

	handshakeFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_handshake_failures_total",
			Help: "Total failed nickname handshakes by reason",
		},
		[]string{"reason"},
	)

	disconnectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_disconnects_total",
			Help: "Total connection terminations by failure kind",
		},
		[]string{"kind"},
	)

	relayErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_relay_errors_total",
		Help: "Total cluster relay publish/consume errors",
	})
)

func init() {
	prometheus.MustRegister(
		onlineUsers,
		messagesTotal,
		deliveriesTotal,
		droppedMessagesTotal,
		handshakeFailuresTotal,
		disconnectsTotal,
		relayErrorsTotal,
	)
}

func IncMessage(origin string)          { messagesTotal.WithLabelValues(origin).Inc() }
func IncDelivered()                     { deliveriesTotal.Inc() }
func IncDropped(reason string)          { droppedMessagesTotal.WithLabelValues(reason).Inc() }
func IncHandshakeFailure(reason string) { handshakeFailuresTotal.WithLabelValues(reason).Inc() }
func IncDisconnect(kind string)         { disconnectsTotal.WithLabelValues(kind).Inc() }
func IncRelayError()                    { relayErrorsTotal.Inc() }
func SetOnline(n int)                   { onlineUsers.Set(float64(n)) }

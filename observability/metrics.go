// Package observability aggregates runtime counters for Prometheus
// scraping and for the inspect dashboard.
package observability

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Message origin label values.
const (
	OriginHuman = "human"
	OriginBot   = "bot"
)

// Metrics carries the Prometheus collectors plus atomic mirrors of the
// cumulative counters. The mirrors keep Snapshot cheap for the inspect
// page and the telemetry worker, without gathering the registry.
// All mutators are safe on a nil receiver so components can run
// unmetered in tests.
type Metrics struct {
	registry *prometheus.Registry

	messagesAppended *prometheus.CounterVec
	eventsPublished  *prometheus.CounterVec
	sinksPruned      prometheus.Counter
	botActivations   prometheus.Counter
	botFailures      prometheus.Counter
	subscribers      prometheus.Gauge
	chats            prometheus.Gauge

	totalMessages    uint64
	totalEvents      uint64
	totalPruned      uint64
	totalActivations uint64
	totalFailures    uint64
	liveSubscribers  int64
	liveChats        int64
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		messagesAppended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "messages_appended_total",
			Help:      "Messages appended to chat logs, by origin.",
		}, []string{"origin"}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "events_published_total",
			Help:      "Events delivered to chat subscribers, by event name.",
		}, []string{"event"}),
		sinksPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "sinks_pruned_total",
			Help:      "Subscribers removed after a failed delivery.",
		}),
		botActivations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bot",
			Name:      "activations_total",
			Help:      "Bot activations started.",
		}),
		botFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bot",
			Name:      "activation_failures_total",
			Help:      "Bot activations that ended with an error or panic.",
		}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chat",
			Name:      "open_subscriptions",
			Help:      "Currently connected chat subscribers.",
		}),
		chats: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chat",
			Name:      "chats",
			Help:      "Chats held in the store.",
		}),
	}

	m.registry.MustRegister(
		m.messagesAppended, m.eventsPublished, m.sinksPruned,
		m.botActivations, m.botFailures, m.subscribers, m.chats,
	)
	return m
}

// Handler exposes the collectors for scraping on the debug server.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) MessageAppended(origin string) {
	if m == nil {
		return
	}
	m.messagesAppended.WithLabelValues(origin).Inc()
	atomic.AddUint64(&m.totalMessages, 1)
}

func (m *Metrics) EventPublished(name string) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(name).Inc()
	atomic.AddUint64(&m.totalEvents, 1)
}

func (m *Metrics) SinksPruned(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sinksPruned.Add(float64(n))
	atomic.AddUint64(&m.totalPruned, uint64(n))
}

func (m *Metrics) BotActivationStarted() {
	if m == nil {
		return
	}
	m.botActivations.Inc()
	atomic.AddUint64(&m.totalActivations, 1)
}

func (m *Metrics) BotActivationFailed() {
	if m == nil {
		return
	}
	m.botFailures.Inc()
	atomic.AddUint64(&m.totalFailures, 1)
}

func (m *Metrics) SubscriberConnected() {
	if m == nil {
		return
	}
	m.subscribers.Inc()
	atomic.AddInt64(&m.liveSubscribers, 1)
}

func (m *Metrics) SubscriberDisconnected() {
	if m == nil {
		return
	}
	m.subscribers.Dec()
	atomic.AddInt64(&m.liveSubscribers, -1)
}

func (m *Metrics) ChatCreated() {
	if m == nil {
		return
	}
	m.chats.Inc()
	atomic.AddInt64(&m.liveChats, 1)
}

// Snapshot returns the cumulative counters for dashboards and logs.
func (m *Metrics) Snapshot() map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return map[string]any{
		"messages_appended":  atomic.LoadUint64(&m.totalMessages),
		"events_published":   atomic.LoadUint64(&m.totalEvents),
		"sinks_pruned":       atomic.LoadUint64(&m.totalPruned),
		"bot_activations":    atomic.LoadUint64(&m.totalActivations),
		"bot_failures":       atomic.LoadUint64(&m.totalFailures),
		"open_subscriptions": atomic.LoadInt64(&m.liveSubscribers),
		"chats":              atomic.LoadInt64(&m.liveChats),
	}
}

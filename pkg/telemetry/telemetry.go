// Package telemetry exposes the service's prometheus collectors. All
// metrics are registered on the default registry and served by promhttp
// from the main mux.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SendsTotal counts send intents by outcome: accepted, rejected.
	SendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "courier_sends_total",
		Help: "Send intents received, partitioned by validation outcome.",
	}, []string{"outcome"})

	// PersistsTotal counts authoritative records written to the store.
	PersistsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "courier_messages_persisted_total",
		Help: "Messages durably written to the store.",
	})

	// PersistFailures counts failed store writes on the realtime path.
	PersistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "courier_persist_failures_total",
		Help: "Store writes that failed and produced a message_error push.",
	})

	// PushesTotal counts events pushed to live channels, by event type.
	PushesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "courier_channel_pushes_total",
		Help: "Events fanned out to bound sessions, by event type.",
	}, []string{"event"})

	// PushNoops counts pushes to users with no bound session. Not an
	// error: the durable store is the recovery path for offline users.
	PushNoops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "courier_channel_push_noops_total",
		Help: "Pushes dropped because the target user had no live session.",
	})

	// SessionsBound tracks currently bound live sessions.
	SessionsBound = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "courier_sessions_bound",
		Help: "Live sessions currently bound to a user channel.",
	})

	// QueueDepth tracks the persist queue backlog.
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "courier_persist_queue_depth",
		Help: "Operations waiting in the persist queue.",
	})

	// ReadsMarked counts messages flipped to read by the receipt path.
	ReadsMarked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "courier_messages_marked_read_total",
		Help: "Messages transitioned from unread to read.",
	})
)

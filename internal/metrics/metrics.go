package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Delivery outcome counters. Delivery is best-effort, so these counters are
// the primary signal that a channel is degrading.
var (
	LiveEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_live_emitted_total",
		Help: "Notifications emitted over live sessions.",
	})
	LiveFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_live_failed_total",
		Help: "Live emissions that returned an error.",
	})
	PushSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_push_sent_total",
		Help: "Push messages accepted by a gateway.",
	})
	PushDisabled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_push_disabled_total",
		Help: "Push subscriptions disabled after a permanent gateway failure.",
	})
	PushFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_push_failed_total",
		Help: "Push messages dropped after the retry attempt.",
	})
	NotificationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_notifications_created_total",
		Help: "Notification events persisted.",
	})
)

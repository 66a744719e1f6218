package messaging

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messaging_sends_total",
			Help: "Message send outcomes",
		},
		[]string{"outcome"},
	)

	pendingGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "messaging_retry_queue_size",
			Help: "Messages currently queued for retry",
		},
	)

	probeFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "messaging_probe_failures_total",
			Help: "Connectivity probe failures observed by the retry loop",
		},
	)

	reconnectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "messaging_realtime_reconnects_total",
			Help: "Realtime subscription reconnect attempts",
		},
	)

	subscriptionsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "messaging_realtime_subscriptions",
			Help: "Active realtime conversation subscriptions",
		},
	)
)

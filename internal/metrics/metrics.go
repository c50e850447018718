// Package metrics defines Prometheus metrics for the moderation relay.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline outcomes, used as the "outcome" label.
const (
	OutcomeDone          = "done"
	OutcomeDenied        = "denied"
	OutcomeFailed        = "failed"
	OutcomeUnrecorded    = "unrecorded"
	OutcomeInvalid       = "invalid"
	OutcomeNotifyDropped = "notify_dropped"
)

var (
	ActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modrelay_actions_total",
			Help: "Moderation requests by action and final pipeline outcome",
		},
		[]string{"action", "outcome"},
	)

	ActionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "modrelay_action_duration_seconds",
			Help:    "Time from request received to audit record persisted",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modrelay_notifications_total",
			Help: "Mod-log notifications by sink and result",
		},
		[]string{"sink", "result"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "modrelay_http_request_duration_seconds",
			Help:    "Dashboard HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "modrelay_websocket_connections",
			Help: "Active dashboard live-feed connections",
		},
	)
)

func init() {
	prometheus.MustRegister(
		ActionsTotal, ActionDuration, NotificationsTotal,
		RequestDuration, WSConnections,
	)
}

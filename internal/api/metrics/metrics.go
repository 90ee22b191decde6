// Package metrics defines and registers all custom Prometheus metrics for the
// meetkit API. It is the single source of truth for metric names, labels, and
// help strings.
//
// Metrics register with the default registry at package init; the watcher
// gauge is the exception and is bound at router setup via
// RegisterWatcherGauge.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "meetkit"

// SessionsCreatedTotal counts sessions successfully created through the API.
var SessionsCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_created_total",
		Help:      "Total number of sessions created.",
	},
)

// SessionsStoppedTotal counts sessions explicitly stopped through the API.
// Sessions finalized by the room watcher are not counted here.
var SessionsStoppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_stopped_total",
		Help:      "Total number of sessions stopped via the API.",
	},
)

// TokensIssuedTotal counts issued tokens.
// Label:
//   - kind: "login", "refresh", "project", or "room"
var TokensIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Total number of tokens issued, by kind.",
	},
	[]string{"kind"},
)

// BrokerDecisionsTotal counts broker auth-backend decisions.
// Labels:
//   - check: "user", "vhost", "resource", or "topic"
//   - result: "allow" or "deny"
var BrokerDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broker_decisions_total",
		Help:      "Total number of broker auth decisions, by check and result.",
	},
	[]string{"check", "result"},
)

// RegisterWatcherGauge binds a gauge reporting the number of live room
// watchers. Call once at startup with the watcher registry's Active count.
func RegisterWatcherGauge(active func() float64) {
	promauto.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_room_watchers",
			Help:      "Number of room watchers currently polling.",
		},
		active,
	)
}

// Package metrics holds the Prometheus collectors of the service. They are
// registered on the default registry at package init through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "expense_tickets"

// TicketActionsTotal counts state machine requests.
// Labels:
//   - action: validate, unvalidate, pay, unpay, reject
//   - result: applied, forbidden, invalid_state, missing_reason, conflict, not_found, error
var TicketActionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ticket_actions_total",
		Help:      "Total number of ticket action requests, labelled by action and outcome.",
	},
	[]string{"action", "result"},
)

// AuthorizationDenialsTotal counts permission checks that failed.
// Label:
//   - role: the effective role of the denied identity
var AuthorizationDenialsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authorization_denials_total",
		Help:      "Total number of requests denied for insufficient permissions.",
	},
	[]string{"role"},
)

// RoleCacheLookupsTotal counts role registry reads by cache outcome (hit/miss).
var RoleCacheLookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "role_cache_lookups_total",
		Help:      "Total number of role registry lookups, labelled by cache result.",
	},
	[]string{"result"},
)

// RevocationEvictionsTotal counts logouts dropped from the in-process
// revocation store before their token expired.
var RevocationEvictionsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "revocation_evictions_total",
		Help:      "Total number of token revocations evicted from the in-process store before expiry.",
	},
)

// MediaCleanupTotal counts attachment removals by result (removed/missing/failed/dropped).
var MediaCleanupTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "media_cleanup_total",
		Help:      "Total number of attachment cleanup jobs, labelled by result.",
	},
	[]string{"result"},
)

// MediaQueueDepth tracks cleanup jobs waiting for a worker.
var MediaQueueDepth = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "media_cleanup_queue_depth",
		Help:      "Current number of attachment cleanup jobs waiting in the queue.",
	},
)

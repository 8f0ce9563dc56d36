// Package metrics defines and registers all custom Prometheus metrics for the
// attendance bot. It is the single source of truth for metric names, labels
// and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation and exposed on GET /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "attendance"

// ── Action metrics ────────────────────────────────────────────────────────────

// ActionsProcessedTotal counts user actions that completed a dialogue turn.
// Labels:
//   - kind: the inbound action kind (e.g. "photo_shared")
//   - stage: the dialogue stage the turn ended in (e.g. "idle")
var ActionsProcessedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "actions_processed_total",
		Help:      "Total number of user actions processed.",
	},
	[]string{"kind", "stage"},
)

// ActionErrorsTotal counts turns that ended with an operator-facing error.
// Label:
//   - reason: "invalid_action", "record_failed", "profile_failed", "reply_failed", "evidence_unavailable"
var ActionErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "action_errors_total",
		Help:      "Total number of user actions that ended in an error.",
	},
	[]string{"reason"},
)

// ActionsDedupTotal counts deduplication decisions.
// Label:
//   - result: "hit" (redelivery, skipped) or "miss" (new action, processed)
var ActionsDedupTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "actions_dedup_total",
		Help:      "Total number of deduplication checks, labelled by result (hit/miss).",
	},
	[]string{"result"},
)

// ActionsQueueDepth tracks the number of actions waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var ActionsQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "actions_queue_depth",
		Help:      "Current number of actions pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// TurnDuration measures one dialogue turn from dequeue to the last reply.
// Label:
//   - kind: the inbound action kind
var TurnDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "turn_duration_seconds",
		Help:      "Duration of a dialogue turn including storage and replies.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"kind"},
)

// ── Record metrics ────────────────────────────────────────────────────────────

// RecordsWrittenTotal counts attendance writes.
// Labels:
//   - kind: "arrival" or "departure"
//   - op: "created" (first event of the day) or "updated"
var RecordsWrittenTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_written_total",
		Help:      "Total number of attendance record writes, by kind and operation.",
	},
	[]string{"kind", "op"},
)

// RecordRetriesTotal counts reconciliation attempts repeated because the row
// changed between read and write.
var RecordRetriesTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "record_retries_total",
		Help:      "Total number of reconciliation retries after a stale handle or lost append race.",
	},
)

// NotificationsTotal counts broadcast attempts.
// Label:
//   - result: "sent", "failed" or "skipped" (no broadcast destination)
var NotificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Total number of attendance broadcasts, by result.",
	},
	[]string{"result"},
)

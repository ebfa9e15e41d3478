// Package metrics defines and registers all custom Prometheus metrics for the
// citizen relay API. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics register themselves with the default Prometheus registry at import
// time via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bolle"

// AlertsCreatedTotal counts alerts accepted into the system.
// Labels:
//   - service: target agency endpoint name (e.g. "hygiene")
//   - anonymous: "true" or "false"
var AlertsCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_created_total",
		Help:      "Total number of alerts created, by target service and anonymity.",
	},
	[]string{"service", "anonymous"},
)

// ForwardingsTotal counts forwarding attempts to agency backends.
// Labels:
//   - service: target agency endpoint name
//   - result: "ok" or "error"
var ForwardingsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "forwardings_total",
		Help:      "Total number of alert forwarding attempts, by service and result.",
	},
	[]string{"service", "result"},
)

// WebhookUpdatesTotal counts status and comment updates received from
// agency backends.
// Label:
//   - kind: "status" or "comment"
var WebhookUpdatesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_updates_total",
		Help:      "Total number of webhook updates received from agencies, by kind.",
	},
	[]string{"kind"},
)

// UploadsTotal counts processed proof files.
// Labels:
//   - type: proof type ("photo", "video", "audio")
//   - result: "ok" or "degraded"
var UploadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploads_total",
		Help:      "Total number of proof files processed, by media type and result.",
	},
	[]string{"type", "result"},
)

// ForwardingDuration measures the round-trip time of forwarding an alert to
// an agency backend.
// Label:
//   - service: target agency endpoint name
var ForwardingDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "forwarding_duration_seconds",
		Help:      "Duration of alert forwarding calls to agency backends.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"service"},
)

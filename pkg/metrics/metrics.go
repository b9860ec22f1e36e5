package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Scheduling
	NotificationsScheduled *prometheus.CounterVec
	SchedulingFailures     prometheus.Counter
	GroupSize              prometheus.Histogram

	// Suppression gate
	DeliveriesEvaluated  prometheus.Counter
	DeliveriesSuppressed prometheus.Counter
	GateFailOpen         prometheus.Counter

	// Dismissal
	DismissalPasses    prometheus.Counter
	DismissalsApproved *prometheus.CounterVec
	DismissalsRejected *prometheus.CounterVec
	DismissalLatency   prometheus.Histogram

	// Alerter
	AlertsRaised      *prometheus.CounterVec
	AlertsRateLimited prometheus.Counter

	// Reconciler
	ReconcilerPasses      prometheus.Counter
	MappingsReconciled    prometheus.Counter
	ReconciliationLatency prometheus.Histogram
}

// NewMetrics creates and registers all application metrics on the default
// registry.
func NewMetrics(namespace string) *Metrics {
	return newMetrics(promauto.With(prometheus.DefaultRegisterer), namespace)
}

// NewMetricsWith registers metrics on the given registry. Used by tests to
// avoid duplicate registration on the default registry.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	return newMetrics(promauto.With(reg), namespace)
}

func newMetrics(factory promauto.Factory, namespace string) *Metrics {
	return &Metrics{
		NotificationsScheduled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_scheduled_total",
			Help:      "Total number of notifications scheduled, by type",
		}, []string{"type"}),
		SchedulingFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduling_failures_total",
			Help:      "Total number of per-bucket scheduling failures",
		}),
		GroupSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "notification_group_size",
			Help:      "Number of actions carried by each scheduled notification",
			Buckets:   []float64{1, 2, 3, 4, 5, 8, 12},
		}),
		DeliveriesEvaluated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_evaluated_total",
			Help:      "Total number of delivery-time suppression checks",
		}),
		DeliveriesSuppressed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_suppressed_total",
			Help:      "Total number of notifications suppressed at delivery time",
		}),
		GateFailOpen: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_fail_open_total",
			Help:      "Total number of deliveries shown because the gate failed open",
		}),
		DismissalPasses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dismissal_passes_total",
			Help:      "Total number of dismissal cross-reference passes",
		}),
		DismissalsApproved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dismissals_approved_total",
			Help:      "Total number of approved dismissals, by strategy",
		}, []string{"strategy"}),
		DismissalsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dismissals_rejected_total",
			Help:      "Total number of rejected dismissal candidates, by reason",
		}, []string{"reason"}),
		DismissalLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dismissal_pass_duration_seconds",
			Help:      "Duration of dismissal cross-reference passes",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		AlertsRaised: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_raised_total",
			Help:      "Total number of error alerts raised, by severity",
		}, []string{"severity"}),
		AlertsRateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_rate_limited_total",
			Help:      "Total number of error alerts dropped by the rate limiter",
		}),
		ReconcilerPasses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciler_passes_total",
			Help:      "Total number of mapping reconciliation passes",
		}),
		MappingsReconciled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mappings_reconciled_total",
			Help:      "Total number of orphaned mappings removed",
		}),
		ReconciliationLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconciliation_duration_seconds",
			Help:      "Time spent per reconciliation pass",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
	}
}

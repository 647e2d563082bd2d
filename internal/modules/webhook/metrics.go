package webhook

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partnerhub_webhook_dispatches_total",
			Help: "Total number of fired events, by event type",
		},
		[]string{"event"},
	)

	deliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partnerhub_webhook_deliveries_total",
			Help: "Total number of delivery attempts, by event type and outcome",
		},
		[]string{"event", "outcome"},
	)

	deliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "partnerhub_webhook_delivery_duration_seconds",
			Help:    "Duration of outbound webhook requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	deliveriesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "partnerhub_webhook_deliveries_in_flight",
			Help: "Number of outbound webhook requests currently in flight",
		},
	)

	persistenceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partnerhub_webhook_persistence_failures_total",
			Help: "Delivery bookkeeping writes that failed, by operation",
		},
		[]string{"op"},
	)
)

func outcomeLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

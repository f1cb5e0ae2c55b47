package dispatch

import "github.com/prometheus/client_golang/prometheus"

var (
	// Each request is counted under exactly one outcome, at settlement.
	dispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "dispatch",
			Name:      "requests_total",
			Help:      "Dispatched requests by outcome (direct, queued, rejected, failed)",
		},
		[]string{"outcome"},
	)

	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "inferd",
			Subsystem: "dispatch",
			Name:      "queue_depth",
			Help:      "Requests currently waiting for a free server",
		},
	)

	queueWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "inferd",
			Subsystem: "dispatch",
			Name:      "queue_wait_seconds",
			Help:      "Time queued requests waited before settling",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	backendDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "inferd",
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Duration of backend generation/embedding calls",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"server", "kind"},
	)
)

func init() {
	prometheus.MustRegister(dispatchTotal, queueDepth, queueWait, backendDuration)
}

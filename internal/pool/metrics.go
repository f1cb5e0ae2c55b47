package pool

import "github.com/prometheus/client_golang/prometheus"

var (
	serversOnline = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "inferd",
			Subsystem: "pool",
			Name:      "servers_online",
			Help:      "Number of backend servers currently online",
		},
	)

	serverOnline = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "inferd",
			Subsystem: "pool",
			Name:      "server_online",
			Help:      "Whether a backend server is online (1) or offline (0)",
		},
		[]string{"server"},
	)

	activeRequests = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "inferd",
			Subsystem: "pool",
			Name:      "active_requests",
			Help:      "In-flight executions per backend server",
		},
		[]string{"server"},
	)
)

func init() {
	prometheus.MustRegister(serversOnline, serverOnline, activeRequests)
}

func setOnlineMetric(name string, online bool) {
	v := 0.0
	if online {
		v = 1.0
	}
	serverOnline.WithLabelValues(name).Set(v)
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

// SpinMetrics tracks spin requests relayed to overlays and the results they report back.
type SpinMetrics struct {
	Requests  *prometheus.CounterVec
	Broadcast prometheus.Counter
	Results   *prometheus.CounterVec
}

func NewSpinMetrics(reg prometheus.Registerer) *SpinMetrics {
	m := &SpinMetrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spin_requests_total",
			Help:      "Spin requests broadcast, by source (cheer or test).",
		}, []string{"source"}),
		Broadcast: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spins_broadcast_total",
			Help:      "Total spin units broadcast to overlays.",
		}),
		Results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spin_results_total",
			Help:      "Spin results reported by overlays.",
		}, []string{"result"}),
	}

	reg.MustRegister(m.Requests, m.Broadcast, m.Results)
	return m
}

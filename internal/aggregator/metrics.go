package aggregator

import "github.com/prometheus/client_golang/prometheus"

// Metrics instruments aggregator traffic and the optimal mint search.
type Metrics struct {
	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	searchIterations prometheus.Histogram
	searchOutcome    *prometheus.CounterVec
}

// NewMetrics builds the collectors and registers them when reg is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "automan",
			Subsystem: "aggregator",
			Name:      "requests_total",
			Help:      "Aggregator HTTP requests by endpoint and result.",
		}, []string{"endpoint", "result"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "automan",
			Subsystem: "aggregator",
			Name:      "request_duration_seconds",
			Help:      "Aggregator HTTP latency, excluding throttle wait.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		searchIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "automan",
			Subsystem: "optimal_mint",
			Name:      "search_iterations",
			Help:      "Binary search iterations per optimal mint.",
			Buckets:   prometheus.LinearBuckets(0, 1, maxSearchIterations+1),
		}),
		searchOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "automan",
			Subsystem: "optimal_mint",
			Name:      "outcome_total",
			Help:      "Which route won the optimal mint.",
		}, []string{"route"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.requestDuration, m.searchIterations, m.searchOutcome)
	}
	return m
}

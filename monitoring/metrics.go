package monitoring

import "github.com/prometheus/client_golang/prometheus"

var (
	HttpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "status"},
	)

	HttpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_connections",
			Help: "Number of active connections",
		},
	)

	ExternalFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labcomm_external_fetches_total",
			Help: "Total number of outbound fetches to external content sources",
		},
		[]string{"source", "outcome"},
	)

	ExternalFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "labcomm_external_fetch_duration_seconds",
			Help:    "Duration of outbound fetches to external content sources",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	Placeholders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labcomm_placeholders_total",
			Help: "Total number of pages rendered with an unavailable placeholder",
		},
		[]string{"source"},
	)
)

// Register adds every collector to the given registerer.
func Register(registerer prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		HttpRequestsTotal,
		HttpRequestDuration,
		ActiveConnections,
		ExternalFetches,
		ExternalFetchDuration,
		Placeholders,
	}
	for _, collector := range collectors {
		if err := registerer.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"net/http"
	"strconv"
)

// PatternFunc maps a request to the route label recorded for it. Raw paths
// would give every post slug its own series.
type PatternFunc func(r *http.Request) string

type PrometheusMiddleware struct {
	handler http.Handler
	pattern PatternFunc
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (m *PrometheusMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/metrics" {
		// Skip collecting metrics from metrics endpoint itself
		m.handler.ServeHTTP(w, r)
		return
	}

	path := m.pattern(r)
	if path == "" {
		path = "unmatched"
	}

	// begin timer to measure the requests duration
	timer := prometheus.NewTimer(HttpRequestDuration.WithLabelValues(path))

	// increment number of active connections
	ActiveConnections.Inc()
	defer ActiveConnections.Dec()

	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	m.handler.ServeHTTP(recorder, r)

	timer.ObserveDuration()
	HttpRequestsTotal.WithLabelValues(path, strconv.Itoa(recorder.status)).Inc()
}

func NewPrometheusMiddleware(handlerToWrap http.Handler, pattern PatternFunc) *PrometheusMiddleware {
	if pattern == nil {
		pattern = func(r *http.Request) string { return r.URL.Path }
	}
	return &PrometheusMiddleware{handler: handlerToWrap, pattern: pattern}
}

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blockinsight7000",
		Subsystem: "http_server",
		Name:      "requests_total",
		Help:      "Count of read API requests.",
	}, []string{"route", "code"})
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "blockinsight7000",
		Subsystem: "http_server",
		Name:      "request_duration_seconds",
		Help:      "Duration of read API requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "code"})
)

// HTTPServer tracks metrics for the read API.
type HTTPServer struct{}

// NewHTTPServer constructs an HTTPServer metrics collector.
func NewHTTPServer() *HTTPServer {
	return &HTTPServer{}
}

// Observe records one served request.
func (HTTPServer) Observe(route string, code int, started time.Time) {
	c := strconv.Itoa(code)
	httpRequestsTotal.WithLabelValues(route, c).Inc()
	httpRequestDuration.WithLabelValues(route, c).Observe(time.Since(started).Seconds())
}

package metrics

import (
	"strconv"
	"time"

	"mercator-hq/enricher/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics tracks requests served by the HTTP host.
type HTTPMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewHTTPMetrics creates and registers HTTP metrics with the provided registry.
func NewHTTPMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *HTTPMetrics {
	hm := &HTTPMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests served",
			},
			[]string{"method", "code"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}

	registry.MustRegister(hm.requestsTotal, hm.requestDuration)

	return hm
}

// RecordRequest records a completed request.
func (hm *HTTPMetrics) RecordRequest(method string, status int, duration time.Duration) {
	hm.requestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	hm.requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

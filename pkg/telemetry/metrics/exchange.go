package metrics

import (
	"mercator-hq/enricher/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ExchangeMetrics tracks what the transformation engine does per direction.
type ExchangeMetrics struct {
	exchangesTotal     prometheus.Counter
	bodyTransforms     *prometheus.CounterVec
	headerRulesApplied *prometheus.CounterVec
	abortedBuffers     *prometheus.CounterVec
	bodySize           *prometheus.HistogramVec
}

// NewExchangeMetrics creates and registers exchange metrics with the provided registry.
func NewExchangeMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ExchangeMetrics {
	em := &ExchangeMetrics{
		exchangesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "exchanges_total",
				Help:      "Total number of exchanges started",
			},
		),

		bodyTransforms: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "body_transforms_total",
				Help:      "Finalized bodies by direction and outcome",
			},
			[]string{"direction", "outcome"},
		),

		headerRulesApplied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "header_rules_applied_total",
				Help:      "Header rules that changed a header set",
			},
			[]string{"direction"},
		),

		abortedBuffers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "aborted_buffers_total",
				Help:      "Bodies released before end of stream",
			},
			[]string{"direction"},
		),

		bodySize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "body_size_bytes",
				Help:      "Body size before (in) and after (out) transformation",
				Buckets:   cfg.BodySizeBuckets,
			},
			[]string{"direction", "stage"},
		),
	}

	registry.MustRegister(
		em.exchangesTotal,
		em.bodyTransforms,
		em.headerRulesApplied,
		em.abortedBuffers,
		em.bodySize,
	)

	return em
}

// RecordExchange counts a started exchange.
func (em *ExchangeMetrics) RecordExchange() {
	em.exchangesTotal.Inc()
}

// RecordHeaders adds the number of header rules that changed something.
func (em *ExchangeMetrics) RecordHeaders(direction string, changed int) {
	if changed > 0 {
		em.headerRulesApplied.WithLabelValues(direction).Add(float64(changed))
	}
}

// RecordBody records one finalized body.
func (em *ExchangeMetrics) RecordBody(direction, outcome string, inBytes, outBytes int) {
	em.bodyTransforms.WithLabelValues(direction, outcome).Inc()
	em.bodySize.WithLabelValues(direction, "in").Observe(float64(inBytes))
	em.bodySize.WithLabelValues(direction, "out").Observe(float64(outBytes))
}

// RecordAborted records a body dropped before end of stream.
func (em *ExchangeMetrics) RecordAborted(direction string) {
	em.abortedBuffers.WithLabelValues(direction).Inc()
}

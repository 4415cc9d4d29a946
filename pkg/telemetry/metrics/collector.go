package metrics

import (
	"fmt"
	"time"

	"mercator-hq/enricher/pkg/config"
	"mercator-hq/enricher/pkg/transform/exchange"
	"mercator-hq/enricher/pkg/transform/jsonrules"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Collector owns the enricher's Prometheus registry and records engine and
// HTTP events. It implements exchange.Observer.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	exchangeMetrics *ExchangeMetrics
	httpMetrics     *HTTPMetrics
}

var _ exchange.Observer = (*Collector)(nil)

// NewCollector creates a collector with the specified configuration. If
// registry is nil a fresh one is created.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.BodySizeBuckets) == 0 {
		cfg.BodySizeBuckets = append([]float64(nil), config.DefaultBodySizeBuckets...)
	}

	return &Collector{
		config:          cfg,
		registry:        registry,
		exchangeMetrics: NewExchangeMetrics(cfg, registry),
		httpMetrics:     NewHTTPMetrics(cfg, registry),
	}
}

// RecordExchange counts a started exchange.
func (c *Collector) RecordExchange() {
	if !c.config.Enabled {
		return
	}
	c.exchangeMetrics.RecordExchange()
}

// RecordHTTPRequest records a completed HTTP request.
func (c *Collector) RecordHTTPRequest(method string, status int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.httpMetrics.RecordRequest(method, status, duration)
}

// HeadersApplied implements exchange.Observer.
func (c *Collector) HeadersApplied(d exchange.Direction, changed int) {
	if !c.config.Enabled {
		return
	}
	c.exchangeMetrics.RecordHeaders(d.String(), changed)
}

// BodyFinalized implements exchange.Observer.
func (c *Collector) BodyFinalized(d exchange.Direction, outcome jsonrules.Outcome, inBytes, outBytes int) {
	if !c.config.Enabled {
		return
	}
	c.exchangeMetrics.RecordBody(d.String(), outcome.String(), inBytes, outBytes)
}

// BufferReleased implements exchange.Observer.
func (c *Collector) BufferReleased(d exchange.Direction, _ int) {
	if !c.config.Enabled {
		return
	}
	c.exchangeMetrics.RecordAborted(d.String())
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Summary is a point-in-time total of the engine counters.
type Summary struct {
	Exchanges   uint64
	Transformed uint64
	PassThrough uint64
	NonObject   uint64
	Aborted     uint64
	HeaderRules uint64
	Requests    uint64
}

// Summary gathers the registry and totals the counters across labels.
func (c *Collector) Summary() (Summary, error) {
	families, err := c.registry.Gather()
	if err != nil {
		return Summary{}, fmt.Errorf("failed to gather metrics: %w", err)
	}

	ns := c.config.Namespace
	var s Summary
	for _, mf := range families {
		switch mf.GetName() {
		case prometheus.BuildFQName(ns, "", "exchanges_total"):
			s.Exchanges = sumCounters(mf, "", "")
		case prometheus.BuildFQName(ns, "", "body_transforms_total"):
			s.Transformed = sumCounters(mf, "outcome", jsonrules.OutcomeTransformed.String())
			s.PassThrough = sumCounters(mf, "outcome", jsonrules.OutcomePassThrough.String())
			s.NonObject = sumCounters(mf, "outcome", jsonrules.OutcomeNonObject.String())
		case prometheus.BuildFQName(ns, "", "aborted_buffers_total"):
			s.Aborted = sumCounters(mf, "", "")
		case prometheus.BuildFQName(ns, "", "header_rules_applied_total"):
			s.HeaderRules = sumCounters(mf, "", "")
		case prometheus.BuildFQName(ns, "http", "requests_total"):
			s.Requests = sumCounters(mf, "", "")
		}
	}
	return s, nil
}

// sumCounters totals every counter in mf, or only those whose label equals
// value when label is set.
func sumCounters(mf *dto.MetricFamily, label, value string) uint64 {
	var total float64
	for _, m := range mf.GetMetric() {
		if label != "" && !hasLabel(m, label, value) {
			continue
		}
		total += m.GetCounter().GetValue()
	}
	return uint64(total)
}

func hasLabel(m *dto.Metric, name, value string) bool {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue() == value
		}
	}
	return false
}

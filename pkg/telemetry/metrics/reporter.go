package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Reporter logs a Summary of the collector on a cron schedule, for
// deployments that read logs rather than scrape /metrics.
type Reporter struct {
	collector *Collector
	schedule  string
	cron      *cron.Cron
	logger    *slog.Logger

	mu      sync.Mutex
	running bool
	last    Summary
}

// NewReporter creates a reporter. schedule uses standard cron syntax or a
// descriptor such as "@every 1m".
func NewReporter(collector *Collector, schedule string, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{
		collector: collector,
		schedule:  schedule,
		cron:      cron.New(),
		logger:    logger.With("component", "metrics.reporter"),
	}
}

// Start schedules the report. An empty schedule does nothing. The reporter
// stops when ctx is cancelled.
func (r *Reporter) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.schedule == "" {
		r.logger.Debug("report schedule not configured, skipping reporter")
		return nil
	}

	if _, err := cron.ParseStandard(r.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", r.schedule, err)
	}
	if _, err := r.cron.AddFunc(r.schedule, r.Report); err != nil {
		return fmt.Errorf("failed to schedule report: %w", err)
	}

	r.cron.Start()
	r.running = true
	r.logger.Info("metrics reporter started", "schedule", r.schedule)

	go func() {
		<-ctx.Done()
		r.Stop()
	}()

	return nil
}

// Report logs the totals and the change since the previous report.
func (r *Reporter) Report() {
	s, err := r.collector.Summary()
	if err != nil {
		r.logger.Error("metrics report failed", "error", err)
		return
	}

	r.mu.Lock()
	prev := r.last
	r.last = s
	r.mu.Unlock()

	r.logger.Info("metrics report",
		"exchanges", s.Exchanges,
		"exchanges_delta", s.Exchanges-prev.Exchanges,
		"transformed", s.Transformed,
		"pass_through", s.PassThrough,
		"non_object", s.NonObject,
		"aborted", s.Aborted,
		"header_rules_applied", s.HeaderRules,
		"http_requests", s.Requests,
	)
}

// Stop stops the schedule and waits for a running report to finish.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mu.Unlock()

	<-r.cron.Stop().Done()
	r.logger.Info("metrics reporter stopped")
}

// IsRunning reports whether the schedule is active.
func (r *Reporter) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// NextRun returns the next scheduled report time, or the zero time when
// nothing is scheduled.
func (r *Reporter) NextRun() time.Time {
	entries := r.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

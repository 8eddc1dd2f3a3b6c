package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/heat-island-analysis/internal/domain"
	"github.com/couchcryptid/heat-island-analysis/internal/observability"
)

// RunnerConfig selects what the runner analyzes and how often.
type RunnerConfig struct {
	RegionName string
	Periods    []domain.Period
	// Interval re-runs the analysis on a timer; zero means run once and
	// return.
	Interval time.Duration
}

// Runner drives the comparator on a schedule and publishes each report. The
// publisher may be nil, in which case reports are only kept for HTTP serving.
type Runner struct {
	comparator *Comparator
	publisher  ReportPublisher
	logger     *slog.Logger
	metrics    *observability.Metrics
	cfg        RunnerConfig
	clock      clockwork.Clock
	ready      atomic.Bool
	latest     atomic.Pointer[domain.AnalysisReport]
}

// NewRunner creates a Runner. Pass a nil clock to use real time; tests
// inject a fake for deterministic scheduling.
func NewRunner(comparator *Comparator, publisher ReportPublisher, logger *slog.Logger, metrics *observability.Metrics, cfg RunnerConfig, clk clockwork.Clock) *Runner {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	return &Runner{
		comparator: comparator,
		publisher:  publisher,
		logger:     logger,
		metrics:    metrics,
		cfg:        cfg,
		clock:      clk,
	}
}

// CheckReadiness returns nil once at least one report has been published, or
// an error describing why the service is not yet ready.
func (r *Runner) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("no analysis report published yet")
	}
	return nil
}

// LatestReport returns the most recently published report, if any.
func (r *Runner) LatestReport() (domain.AnalysisReport, bool) {
	rep := r.latest.Load()
	if rep == nil {
		return domain.AnalysisReport{}, false
	}
	return *rep, true
}

// Run executes the analysis immediately and then on every interval tick
// until the context is cancelled. With a zero interval it runs once and
// returns that run's error.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("analysis runner started",
		"region", r.cfg.RegionName,
		"periods", len(r.cfg.Periods),
		"interval", r.cfg.Interval)
	r.metrics.AnalysisRunning.Set(1)
	defer r.metrics.AnalysisRunning.Set(0)

	err := r.runOnce(ctx)
	if r.cfg.Interval <= 0 {
		return err
	}
	if err != nil {
		r.logger.Error("analysis failed", "error", err)
	}

	ticker := r.clock.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("analysis runner stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			if err := r.runOnce(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				r.logger.Error("analysis failed", "error", err)
			}
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) error {
	start := r.clock.Now()

	report, err := r.comparator.Compare(ctx, r.cfg.RegionName, r.cfg.Periods)
	if err != nil {
		r.metrics.AnalysisErrors.Inc()
		return err
	}
	r.metrics.AnalysesCompleted.Inc()
	r.metrics.AnalysisDuration.Observe(r.clock.Since(start).Seconds())

	if r.publisher != nil {
		if err := r.publisher.Publish(ctx, report); err != nil {
			r.metrics.AnalysisErrors.Inc()
			return err
		}
		r.metrics.ReportsPublished.Inc()
	}
	r.latest.Store(&report)
	r.ready.Store(true)

	r.logger.Info("analysis completed",
		"region", report.Region,
		"periods", len(report.Periods),
		"generated_at", report.GeneratedAt)
	return nil
}

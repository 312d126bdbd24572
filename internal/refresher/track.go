package refresher

import (
	"context"
	"time"

	"github.com/dvloznov/inventory-refresher/internal/logger"
	"github.com/dvloznov/inventory-refresher/internal/metrics"
	"github.com/dvloznov/inventory-refresher/internal/runs"
	"github.com/dvloznov/inventory-refresher/internal/tablesync"
)

// Option configures a refresher.
type Option func(*observers)

// WithRuns records every run in rec.
func WithRuns(rec runs.Recorder) Option {
	return func(o *observers) {
		o.runs = rec
	}
}

// WithMetrics reports every run to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *observers) {
		o.metrics = m
	}
}

type observers struct {
	runs    runs.Recorder
	metrics *metrics.Metrics
}

func newObservers(opts []Option) observers {
	var o observers
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// tracked follows one run through the recorder and metrics. Recording
// failures are logged and never fail the run.
type tracked struct {
	obs      observers
	id       string
	pipeline string
	started  time.Time
}

func (o observers) start(ctx context.Context, pipeline, table string) *tracked {
	t := &tracked{obs: o, pipeline: pipeline, started: time.Now()}
	if o.runs == nil {
		return t
	}

	run, err := o.runs.Start(ctx, pipeline, table)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("pipeline", pipeline).Msg("Failed to record run start")
		return t
	}
	t.id = run.ID
	return t
}

func (t *tracked) setPhase(ctx context.Context, phase runs.Phase) {
	if t.obs.runs == nil || t.id == "" {
		return
	}
	if err := t.obs.runs.SetPhase(ctx, t.id, phase); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("run_id", t.id).Msg("Failed to record run phase")
	}
}

// onPhase adapts table sync phases to run phases.
func (t *tracked) onPhase(ctx context.Context) func(tablesync.Phase) {
	return func(p tablesync.Phase) {
		switch p {
		case tablesync.PhaseDeleting:
			t.setPhase(ctx, runs.PhaseDeleting)
		case tablesync.PhaseInserting:
			t.setPhase(ctx, runs.PhaseInserting)
		}
	}
}

func (t *tracked) finish(ctx context.Context, summary interface{}, res tablesync.Result, dryRun bool, runErr error) {
	outcome := metrics.OutcomeSuccess
	switch {
	case runErr != nil:
		outcome = metrics.OutcomeFailure
	case dryRun:
		outcome = metrics.OutcomeDryRun
	}

	written, deleted := res.Created, res.Deleted
	if dryRun {
		written, deleted = 0, 0
	}
	t.obs.metrics.ObserveRun(t.pipeline, outcome, time.Since(t.started), written, deleted)

	if t.obs.runs == nil || t.id == "" {
		return
	}
	if err := t.obs.runs.Finish(ctx, t.id, summary, runErr); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("run_id", t.id).Msg("Failed to record run result")
	}
}

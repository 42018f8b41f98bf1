package api

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives callbacks from the flow executor for logging and
// metrics.
//
// Implementations should be fast and non-blocking; heavy work should be
// done asynchronously so as not to delay request processing.
type Observer interface {
	// OnRunStart is called once per request the flow applies to, before
	// the first step is executed.
	OnRunStart(ctx context.Context, run *Run)

	// OnRunCompleted is called when every step of the flow succeeded.
	OnRunCompleted(ctx context.Context, run *Run)

	// OnRunFailed is called when a step failed after all its attempts.
	OnRunFailed(ctx context.Context, run *Run, err error)

	// OnRunSkipped is called when the guard rejected the request or a
	// step asked to skip it.
	OnRunSkipped(ctx context.Context, run *Run, reason string)

	// OnStepStart is called before invoking a step function.
	// stepIndex is the 0-based index into FlowDefinition.Steps.
	OnStepStart(ctx context.Context, run *Run, stepName string, stepIndex int)

	// OnStepCompleted is called after each step attempt returns, for both
	// successes and failures (err != nil).
	OnStepCompleted(ctx context.Context, run *Run, stepName string, stepIndex int, err error, duration time.Duration)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnRunStart(ctx context.Context, run *Run)                      {}
func (NoopObserver) OnRunCompleted(ctx context.Context, run *Run)                  {}
func (NoopObserver) OnRunFailed(ctx context.Context, run *Run, err error)          {}
func (NoopObserver) OnRunSkipped(ctx context.Context, run *Run, reason string)     {}
func (NoopObserver) OnStepStart(ctx context.Context, run *Run, name string, i int) {}
func (NoopObserver) OnStepCompleted(ctx context.Context, run *Run, name string, i int, err error, d time.Duration) {
}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnRunStart(ctx context.Context, run *Run) {
	for _, o := range c.observers {
		o.OnRunStart(ctx, run)
	}
}

func (c *CompositeObserver) OnRunCompleted(ctx context.Context, run *Run) {
	for _, o := range c.observers {
		o.OnRunCompleted(ctx, run)
	}
}

func (c *CompositeObserver) OnRunFailed(ctx context.Context, run *Run, err error) {
	for _, o := range c.observers {
		o.OnRunFailed(ctx, run, err)
	}
}

func (c *CompositeObserver) OnRunSkipped(ctx context.Context, run *Run, reason string) {
	for _, o := range c.observers {
		o.OnRunSkipped(ctx, run, reason)
	}
}

func (c *CompositeObserver) OnStepStart(ctx context.Context, run *Run, name string, idx int) {
	for _, o := range c.observers {
		o.OnStepStart(ctx, run, name, idx)
	}
}

func (c *CompositeObserver) OnStepCompleted(ctx context.Context, run *Run, name string, idx int, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnStepCompleted(ctx, run, name, idx, err, d)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs run / step lifecycle
// events using the provided slog.Logger. If logger is nil, slog.Default()
// is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnRunStart(ctx context.Context, run *Run) {
	o.Logger.InfoContext(ctx, "run_start",
		slog.String("flow", run.FlowName),
		slog.String("run_id", run.ID),
		slog.String("request_id", run.RequestID),
	)
}

func (o *LoggingObserver) OnRunCompleted(ctx context.Context, run *Run) {
	o.Logger.InfoContext(ctx, "run_completed",
		slog.String("flow", run.FlowName),
		slog.String("run_id", run.ID),
		slog.String("request_id", run.RequestID),
	)
}

func (o *LoggingObserver) OnRunFailed(ctx context.Context, run *Run, err error) {
	o.Logger.ErrorContext(ctx, "run_failed",
		slog.String("flow", run.FlowName),
		slog.String("run_id", run.ID),
		slog.String("request_id", run.RequestID),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnRunSkipped(ctx context.Context, run *Run, reason string) {
	o.Logger.InfoContext(ctx, "run_skipped",
		slog.String("flow", run.FlowName),
		slog.String("run_id", run.ID),
		slog.String("request_id", run.RequestID),
		slog.String("reason", reason),
	)
}

func (o *LoggingObserver) OnStepStart(ctx context.Context, run *Run, name string, idx int) {
	o.Logger.DebugContext(ctx, "step_start",
		slog.String("flow", run.FlowName),
		slog.String("run_id", run.ID),
		slog.String("step", name),
		slog.Int("step_index", idx),
	)
}

func (o *LoggingObserver) OnStepCompleted(ctx context.Context, run *Run, name string, idx int, err error, d time.Duration) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelError
	}
	o.Logger.Log(ctx, level, "step_completed",
		slog.String("flow", run.FlowName),
		slog.String("run_id", run.ID),
		slog.String("step", name),
		slog.Int("step_index", idx),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}

// BasicMetrics collects simple counters and aggregate step durations.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	runsStarted       atomic.Int64
	runsCompleted     atomic.Int64
	runsFailed        atomic.Int64
	runsSkipped       atomic.Int64
	startedSkips      atomic.Int64
	stepsCompleted    atomic.Int64
	stepsFailed       atomic.Int64
	totalStepDuration atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	RunsStarted   int64
	RunsCompleted int64
	RunsFailed    int64
	RunsSkipped   int64
	RunsInFlight  int64

	StepsCompleted  int64
	StepsFailed     int64
	AvgStepDuration time.Duration
}

func (m *BasicMetrics) OnRunStart(ctx context.Context, run *Run) {
	m.runsStarted.Add(1)
}

func (m *BasicMetrics) OnRunCompleted(ctx context.Context, run *Run) {
	m.runsCompleted.Add(1)
}

func (m *BasicMetrics) OnRunFailed(ctx context.Context, run *Run, err error) {
	m.runsFailed.Add(1)
}

// OnRunSkipped counts skips. Guard rejections never reach OnRunStart, so
// only runs that executed a step leave the in-flight count.
func (m *BasicMetrics) OnRunSkipped(ctx context.Context, run *Run, reason string) {
	m.runsSkipped.Add(1)
	if len(run.Steps) > 0 {
		m.startedSkips.Add(1)
	}
}

func (m *BasicMetrics) OnStepCompleted(ctx context.Context, run *Run, name string, idx int, err error, d time.Duration) {
	// Only successful steps count towards the average duration.
	if err != nil {
		if !IsSkip(err) {
			m.stepsFailed.Add(1)
		}
		return
	}
	m.stepsCompleted.Add(1)
	m.totalStepDuration.Add(d.Nanoseconds())
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	started := m.runsStarted.Load()
	completed := m.runsCompleted.Load()
	failed := m.runsFailed.Load()
	skipped := m.runsSkipped.Load()
	steps := m.stepsCompleted.Load()
	totalNs := m.totalStepDuration.Load()

	var avg time.Duration
	if steps > 0 {
		avg = time.Duration(totalNs / steps)
	}

	return BasicMetricsSnapshot{
		RunsStarted:     started,
		RunsCompleted:   completed,
		RunsFailed:      failed,
		RunsSkipped:     skipped,
		RunsInFlight:    started - completed - failed - m.startedSkips.Load(),
		StepsCompleted:  steps,
		StepsFailed:     m.stepsFailed.Load(),
		AvgStepDuration: avg,
	}
}

// Package engine runs a flow definition against a single request.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/petrijr/connect/internal/persistence"
	"github.com/petrijr/connect/pkg/api"
)

// GuardReason is the skip reason recorded when a flow's guard rejects a
// request.
const GuardReason = "guard"

// ErrNilRequest is returned by Execute for a nil request.
var ErrNilRequest = errors.New("nil request")

// Config wires an Executor. Every field is optional.
type Config struct {
	// Store receives the history of every run. nil disables history.
	Store persistence.RunStore

	// Observer is notified of run and step lifecycle events.
	Observer api.Observer

	// Approver is handed to each FlowContext for approval steps.
	Approver api.Approver

	// Logger is the base logger of each FlowContext.
	Logger *slog.Logger

	// NewID generates run ids. Defaults to random UUIDs.
	NewID func() string
}

// Executor runs flows one request at a time. It is safe for concurrent
// use as long as the configured collaborators are.
type Executor struct {
	store    persistence.RunStore
	observer api.Observer
	approver api.Approver
	logger   *slog.Logger
	newID    func() string
}

// New creates an Executor from cfg.
func New(cfg Config) *Executor {
	e := &Executor{
		store:    cfg.Store,
		observer: cfg.Observer,
		approver: cfg.Approver,
		logger:   cfg.Logger,
		newID:    cfg.NewID,
	}
	if e.observer == nil {
		e.observer = api.NoopObserver{}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	return e
}

// Execute runs def for req and returns the resulting run.
//
// The returned error is nil for completed and skipped runs. A failed step
// yields an *api.StepError; a cancelled context yields ctx.Err().
func (e *Executor) Execute(ctx context.Context, def api.FlowDefinition, req *api.Request) (*api.Run, error) {
	if req == nil {
		return nil, ErrNilRequest
	}
	run := &api.Run{
		ID:        e.newID(),
		FlowName:  def.Name,
		RequestID: req.ID,
		StartedAt: time.Now().UTC(),
	}

	if !def.Applies(req) {
		run.Status = api.RunSkipped
		run.Reason = GuardReason
		run.FinishedAt = run.StartedAt
		e.save(ctx, run)
		e.observer.OnRunSkipped(ctx, run, GuardReason)
		return run, nil
	}

	run.Status = api.RunRunning
	e.save(ctx, run)
	e.observer.OnRunStart(ctx, run)

	fc := api.NewFlowContext(run.ID, def.Name, req, e.approver, e.logger)
	return e.executeSteps(ctx, def, run, fc)
}

func (e *Executor) executeSteps(ctx context.Context, def api.FlowDefinition, run *api.Run, fc *api.FlowContext) (*api.Run, error) {
	var current any

	for i, step := range def.Steps {
		run.CurrentStep = i

		record := api.StepRecord{Name: step.Name}
		next, err := e.runStep(ctx, run, fc, step, i, current, &record)
		run.Steps = append(run.Steps, record)

		if err == nil {
			current = next
			e.update(ctx, run)
			continue
		}

		run.Data = fc.Snapshot()
		run.FinishedAt = time.Now().UTC()

		switch {
		case api.IsSkip(err):
			run.Status = api.RunSkipped
			run.Reason = skipReason(err)
			e.update(ctx, run)
			e.observer.OnRunSkipped(ctx, run, run.Reason)
			return run, nil

		case ctx.Err() != nil && errors.Is(err, ctx.Err()):
			run.Status = api.RunFailed
			run.Err = err
			e.update(ctx, run)
			e.observer.OnRunFailed(ctx, run, err)
			return run, err

		default:
			stepErr := &api.StepError{
				Flow:      def.Name,
				Step:      step.Name,
				Index:     i,
				RequestID: run.RequestID,
				Err:       err,
			}
			run.Status = api.RunFailed
			run.Err = stepErr
			e.update(ctx, run)
			e.observer.OnRunFailed(ctx, run, stepErr)
			return run, stepErr
		}
	}

	run.Status = api.RunCompleted
	run.Output = current
	run.CurrentStep = len(def.Steps)
	run.Data = fc.Snapshot()
	run.FinishedAt = time.Now().UTC()
	e.update(ctx, run)
	e.observer.OnRunCompleted(ctx, run)

	return run, nil
}

// runStep invokes one step, retrying it according to its policy. record
// is filled with the attempt count, duration and final status.
func (e *Executor) runStep(
	ctx context.Context,
	run *api.Run,
	fc *api.FlowContext,
	step api.StepDefinition,
	idx int,
	input any,
	record *api.StepRecord,
) (any, error) {
	maxAttempts := 1
	var (
		backoff    time.Duration
		maxBackoff time.Duration
		multiplier float64
	)
	if step.Retry != nil {
		if step.Retry.MaxAttempts > 0 {
			maxAttempts = step.Retry.MaxAttempts
		}
		backoff = step.Retry.InitialBackoff
		maxBackoff = step.Retry.MaxBackoff
		multiplier = step.Retry.BackoffMultiplier
		if multiplier <= 0 {
			multiplier = 2.0
		}
	}

	started := time.Now()
	defer func() {
		record.Duration = time.Since(started)
	}()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			record.Status = api.StepFailed
			record.Error = err.Error()
			return nil, err
		}

		record.Attempts = attempt
		attemptStart := time.Now()
		e.observer.OnStepStart(ctx, run, step.Name, idx)

		out, err := callStep(ctx, step.Fn, fc, input)

		e.observer.OnStepCompleted(ctx, run, step.Name, idx, err, time.Since(attemptStart))

		if err == nil {
			record.Status = api.StepCompleted
			return out, nil
		}
		if api.IsSkip(err) {
			record.Status = api.StepSkipped
			record.Error = skipReason(err)
			return nil, err
		}

		lastErr = err
		record.Status = api.StepFailed
		record.Error = err.Error()

		if attempt == maxAttempts {
			break
		}

		fc.Logger().Warn("step attempt failed",
			slog.String("step", step.Name),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", maxAttempts),
			slog.Any("error", err),
		)

		if backoff > 0 {
			delay := backoff
			if maxBackoff > 0 && delay > maxBackoff {
				delay = maxBackoff
			}

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				record.Error = ctx.Err().Error()
				return nil, ctx.Err()
			case <-timer.C:
			}

			next := time.Duration(float64(backoff) * multiplier)
			if maxBackoff > 0 && next > maxBackoff {
				next = maxBackoff
			}
			backoff = next
		}
	}

	return nil, lastErr
}

// callStep turns a panicking step into an error.
func callStep(ctx context.Context, fn api.StepFunc, fc *api.FlowContext, input any) (out any, err error) {
	if fn == nil {
		return nil, errors.New("step has no function")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("step panicked: %v", r)
		}
	}()
	return fn(ctx, fc, input)
}

func skipReason(err error) string {
	return strings.TrimPrefix(err.Error(), api.ErrSkip.Error()+": ")
}

func (e *Executor) save(ctx context.Context, run *api.Run) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		e.logger.Warn("save run failed",
			slog.String("run_id", run.ID),
			slog.String("request_id", run.RequestID),
			slog.Any("error", err),
		)
	}
}

func (e *Executor) update(ctx context.Context, run *api.Run) {
	if e.store == nil {
		return
	}
	if err := e.store.UpdateRun(context.WithoutCancel(ctx), run); err != nil {
		e.logger.Warn("update run failed",
			slog.String("run_id", run.ID),
			slog.String("request_id", run.RequestID),
			slog.Any("error", err),
		)
	}
}

package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

var (
	// ErrPassInProgress is returned by RunOnce while another pass runs.
	ErrPassInProgress = errors.New("processing pass already in progress")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("worker already started")
)

// PassFunc performs one processing pass.
type PassFunc func(ctx context.Context) error

// Worker invokes a PassFunc on a cron schedule.
type Worker struct {
	pass   PassFunc
	spec   string
	logger *slog.Logger

	running sync.Mutex
	passes  atomic.Int64
	failed  atomic.Int64

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
}

// New creates a Worker running pass on the cron spec.
func New(pass PassFunc, spec string, logger *slog.Logger) (*Worker, error) {
	if pass == nil {
		return nil, errors.New("worker needs a pass function")
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		pass:   pass,
		spec:   spec,
		logger: logger.With(slog.String("module", "worker")),
	}, nil
}

// Start schedules passes until Stop is called or ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cron != nil {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	cl := cronLogger{w.logger}
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cl),
		cron.Recover(cl),
	))

	if _, err := c.AddFunc(w.spec, func() {
		if err := w.RunOnce(runCtx); err != nil && !errors.Is(err, ErrPassInProgress) {
			w.logger.Error("Processing pass failed", slog.Any("error", err))
		}
	}); err != nil {
		cancel()
		return fmt.Errorf("schedule pass: %w", err)
	}

	w.cron = c
	w.cancel = cancel
	c.Start()
	w.logger.Info("Worker started", slog.String("schedule", w.spec))

	go func() {
		<-runCtx.Done()
		w.Stop()
	}()
	return nil
}

// RunOnce performs a single pass now. It returns ErrPassInProgress when a
// pass is already running.
func (w *Worker) RunOnce(ctx context.Context) error {
	if !w.running.TryLock() {
		return ErrPassInProgress
	}
	defer w.running.Unlock()

	n := w.passes.Add(1)
	start := time.Now()
	w.logger.Debug("Processing pass started", slog.Int64("pass", n))

	err := w.pass(ctx)

	attrs := []any{slog.Int64("pass", n), slog.Duration("duration", time.Since(start))}
	if err != nil {
		w.failed.Add(1)
		w.logger.Warn("Processing pass finished with errors", append(attrs, slog.Any("error", err))...)
		return err
	}
	w.logger.Info("Processing pass finished", attrs...)
	return nil
}

// Stop stops scheduling and waits for a running pass to return. It is
// safe to call more than once.
func (w *Worker) Stop() {
	w.mu.Lock()
	c, cancel := w.cron, w.cancel
	w.cron, w.cancel = nil, nil
	w.mu.Unlock()

	if c == nil {
		return
	}
	cancel()
	<-c.Stop().Done()
	w.logger.Info("Worker stopped", slog.Int64("passes", w.passes.Load()))
}

// Passes returns the number of passes started so far.
func (w *Worker) Passes() int64 { return w.passes.Load() }

// FailedPasses returns the number of passes that returned an error.
func (w *Worker) FailedPasses() int64 { return w.failed.Load() }

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, slog.Any("error", err))...)
}

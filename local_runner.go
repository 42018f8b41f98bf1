package connect

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/petrijr/connect/pkg/worker"
)

// LocalRunner bundles an in-memory source, an in-memory run store,
// metrics and a Processor for development and debugging.
//
// Typical usage:
//
//	runner, _ := connect.NewLocalRunner(flow.Definition(), reqs...)
//
//	// Single pass:
//	res, err := runner.ProcessAssetRequests(ctx, query)
//
//	// Scheduled passes:
//	_ = runner.Start(ctx, "@every 1s", query)
//	...
//	runner.Stop()
type LocalRunner struct {
	// Source serves and approves the requests.
	Source *MemorySource

	// Store keeps the history of every run.
	Store RunStore

	// Metrics counts runs and steps.
	Metrics *BasicMetrics

	// Processor runs the flow against Source.
	Processor *Processor

	mu     sync.Mutex
	worker *worker.Worker
}

// NewLocalRunner constructs a LocalRunner running def over reqs. opts are
// applied to the Processor after the runner's own defaults.
func NewLocalRunner(def FlowDefinition, reqs []*Request, opts ...Option) (*LocalRunner, error) {
	src, err := NewMemorySource(reqs...)
	if err != nil {
		return nil, err
	}
	r := &LocalRunner{
		Source:  src,
		Store:   NewInMemoryStore(),
		Metrics: &BasicMetrics{},
	}
	defaults := []Option{WithStore(r.Store), WithObserver(r.Metrics)}
	r.Processor = NewProcessor(src, append(defaults, opts...)...).Flow(def)
	return r, nil
}

// ProcessAssetRequests runs a single pass over the requests matching q.
func (r *LocalRunner) ProcessAssetRequests(ctx context.Context, q *Query) (*Result, error) {
	return r.Processor.ProcessAssetRequests(ctx, q)
}

// Start runs a pass over the requests matching q on every tick of the
// cron schedule until Stop is called or ctx is cancelled.
//
// If Start is called more than once without Stop, it returns an error.
func (r *LocalRunner) Start(ctx context.Context, schedule string, q *Query) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.worker != nil {
		return errors.New("connect: LocalRunner already started")
	}

	snapshot := q.Clone()
	w, err := worker.New(func(ctx context.Context) error {
		_, err := r.Processor.ProcessAssetRequests(ctx, snapshot)
		return err
	}, schedule, r.Processor.logger.With(slog.String("runner", "local")))
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	r.worker = w
	return nil
}

// Stop stops scheduled passes and waits for a running one to finish.
func (r *LocalRunner) Stop() {
	r.mu.Lock()
	w := r.worker
	r.worker = nil
	r.mu.Unlock()

	if w != nil {
		w.Stop()
	}
}

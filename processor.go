package connect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/petrijr/connect/internal/engine"
	"github.com/petrijr/connect/internal/persistence"
	"github.com/petrijr/connect/pkg/api"
	"github.com/petrijr/connect/pkg/logging"
)

// DefaultFlowName names the flow built from Processor.Step and
// Processor.Do when no Flow was set.
const DefaultFlowName = "default"

// Option configures a Processor.
type Option func(*Processor)

// WithObserver sets the observer notified of run and step events.
func WithObserver(obs Observer) Option {
	return func(p *Processor) { p.observer = obs }
}

// WithStore sets where run history is kept. Defaults to memory.
func WithStore(store RunStore) Option {
	return func(p *Processor) { p.store = store }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) { p.logger = logger }
}

// WithApprover sets the approver used by approval steps. Defaults to the
// source when it also implements Approver.
func WithApprover(approver Approver) Option {
	return func(p *Processor) { p.approver = approver }
}

// WithStopOnError makes a pass stop at the first failed request instead of
// continuing with the next one.
func WithStopOnError(stop bool) Option {
	return func(p *Processor) { p.stopOnError = stop }
}

// WithIDGenerator overrides how run ids are generated.
func WithIDGenerator(newID func() string) Option {
	return func(p *Processor) { p.newID = newID }
}

// Result summarizes one processing pass.
type Result struct {
	// Processed counts requests the flow was run for, skipped ones
	// included.
	Processed int
	Completed int
	Failed    int
	Skipped   int

	// Runs holds one run per processed request, in processing order.
	Runs []*Run
}

// Processor lists remote requests and runs a flow once per request.
//
//	res, err := connect.NewProcessor(client).
//	    Flow(flow.Definition()).
//	    ProcessAssetRequests(ctx, connect.NewQuery().Equal("status", "pending"))
//
// Requests are processed one at a time in the order the source returns
// them; the steps of each request run in registration order.
type Processor struct {
	source      RequestSource
	flow        *FlowBuilder
	store       RunStore
	observer    Observer
	approver    Approver
	logger      *slog.Logger
	stopOnError bool
	newID       func() string
}

// NewProcessor creates a Processor reading requests from source.
func NewProcessor(source RequestSource, opts ...Option) *Processor {
	p := &Processor{
		source: source,
		flow:   NewFlow(DefaultFlowName, nil),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.store == nil {
		p.store = persistence.NewInMemoryStore()
	}
	if p.observer == nil {
		p.observer = NoopObserver{}
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.approver == nil {
		if a, ok := source.(Approver); ok {
			p.approver = a
		}
	}
	return p
}

// Flow sets the flow run for every request, replacing steps added so far.
func (p *Processor) Flow(def FlowDefinition) *Processor {
	p.flow = &FlowBuilder{def: def}
	p.flow.def.Steps = append([]api.StepDefinition(nil), def.Steps...)
	return p
}

// Step appends a step to the processor's flow.
func (p *Processor) Step(name string, fn StepFunc) *Processor {
	p.flow.Step(name, fn)
	return p
}

// Do appends a context-only step to the processor's flow.
func (p *Processor) Do(name string, fn ActionFunc) *Processor {
	p.flow.Do(name, fn)
	return p
}

// Definition returns the flow the processor runs.
func (p *Processor) Definition() FlowDefinition {
	return p.flow.Definition()
}

// Store returns the run history store.
func (p *Processor) Store() RunStore {
	return p.store
}

// ProcessAssetRequests runs the flow for every asset request matching q.
func (p *Processor) ProcessAssetRequests(ctx context.Context, q *Query) (*Result, error) {
	return p.Run(ctx, api.ResourceRequests, q)
}

// Run lists resource with q and runs the flow once per returned request.
//
// The query is copied before listing, so it may be reused or extended by
// the caller afterwards. A listing failure wraps ErrListRequests and no
// request is processed. Otherwise the returned error joins the error of
// every failed request; the Result is returned in both cases.
func (p *Processor) Run(ctx context.Context, resource string, q *Query) (*Result, error) {
	def := p.flow.Definition()
	if len(def.Steps) == 0 {
		return nil, ErrNoFlow
	}
	if q == nil {
		q = NewQuery()
	}
	snapshot := q.Clone()

	logger := logging.WithModule(p.logger, "processor").With(logging.FlowName(def.Name))
	logger.Debug("Listing requests", slog.String("resource", resource), slog.String("query", snapshot.String()))

	reqs, err := p.source.ListRequests(ctx, resource, snapshot)
	if err != nil {
		logger.Error("Listing requests failed", logging.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrListRequests, err)
	}
	for i, req := range reqs {
		if req == nil {
			logger.Error("Listing returned a nil request", slog.Int("index", i))
			return nil, fmt.Errorf("%w: nil request at index %d", ErrListRequests, i)
		}
	}
	logger.Info("Processing requests", slog.Int("count", len(reqs)))

	exec := engine.New(engine.Config{
		Store:    p.store,
		Observer: p.observer,
		Approver: p.approver,
		Logger:   p.logger,
		NewID:    p.newID,
	})

	res := &Result{Runs: make([]*Run, 0, len(reqs))}
	var errs []error

	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		run, err := exec.Execute(ctx, def, req)
		if run != nil {
			res.add(run)
		}
		if err == nil {
			continue
		}

		errs = append(errs, err)
		if p.stopOnError || ctx.Err() != nil {
			break
		}
	}

	logger.Info("Processing finished",
		slog.Int("processed", res.Processed),
		slog.Int("completed", res.Completed),
		slog.Int("failed", res.Failed),
		slog.Int("skipped", res.Skipped),
	)
	return res, errors.Join(errs...)
}

// Runs lists stored runs matching filter, newest first.
func (p *Processor) Runs(ctx context.Context, filter RunFilter) ([]*Run, error) {
	return p.store.ListRuns(ctx, filter)
}

// GetRun fetches a stored run by id.
func (p *Processor) GetRun(ctx context.Context, id string) (*Run, error) {
	return p.store.GetRun(ctx, id)
}

func (r *Result) add(run *Run) {
	r.Runs = append(r.Runs, run)
	r.Processed++
	switch run.Status {
	case RunCompleted:
		r.Completed++
	case RunFailed:
		r.Failed++
	case RunSkipped:
		r.Skipped++
	}
}

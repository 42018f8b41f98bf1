package connect

import (
	"fmt"

	"github.com/petrijr/connect/pkg/api"
)

// FlowBuilder provides a fluent API for defining flows:
//
//	flow := connect.NewFlow("Basic Flow", nil).
//	    Step("Add request data", connect.CollectRequestData()).
//	    Step("Trace request data", connect.TraceRequestData(os.Stdout))
//
//	res, err := connect.NewProcessor(client).
//	    Flow(flow.Definition()).
//	    ProcessAssetRequests(ctx, query)
//
// Steps run in the order they are added.
type FlowBuilder struct {
	def api.FlowDefinition
}

// NewFlow creates a flow builder. guard may be nil, in which case the flow
// applies to every request.
func NewFlow(name string, guard GuardFunc) *FlowBuilder {
	return &FlowBuilder{
		def: api.FlowDefinition{
			Name:  name,
			Guard: guard,
			Steps: make([]api.StepDefinition, 0),
		},
	}
}

// Name returns the flow name.
func (b *FlowBuilder) Name() string {
	return b.def.Name
}

// Definition returns a copy of the underlying FlowDefinition. Steps added
// to the builder afterwards do not affect the returned value.
func (b *FlowBuilder) Definition() FlowDefinition {
	def := b.def
	def.Steps = append([]api.StepDefinition(nil), b.def.Steps...)
	return def
}

// Step appends a step that receives the previous step's output.
func (b *FlowBuilder) Step(name string, fn StepFunc) *FlowBuilder {
	b.def.Steps = append(b.def.Steps, newStep(name, fn, nil))
	return b
}

// Do appends a step that only works on the FlowContext. The next step
// receives nil.
func (b *FlowBuilder) Do(name string, fn ActionFunc) *FlowBuilder {
	if fn == nil {
		panic(fmt.Sprintf("connect: step %q has nil function", name))
	}
	return b.Step(name, api.Action(fn))
}

// StepWithRetry appends a step that uses the given retry policy.
func (b *FlowBuilder) StepWithRetry(name string, fn StepFunc, retry RetryPolicy) *FlowBuilder {
	// Copy so callers can reuse their policy value.
	r := retry
	b.def.Steps = append(b.def.Steps, newStep(name, fn, &r))
	return b
}

// StepWithRetryBuilder is StepWithRetry taking a RetryBuilder.
func (b *FlowBuilder) StepWithRetryBuilder(name string, fn StepFunc, rb RetryBuilder) *FlowBuilder {
	return b.StepWithRetry(name, fn, rb.Policy())
}

// Guard replaces the flow's guard.
func (b *FlowBuilder) Guard(guard GuardFunc) *FlowBuilder {
	b.def.Guard = guard
	return b
}

func newStep(name string, fn StepFunc, retry *RetryPolicy) api.StepDefinition {
	if name == "" {
		panic("connect: step name must not be empty")
	}
	if fn == nil {
		panic(fmt.Sprintf("connect: step %q has nil function", name))
	}
	return api.StepDefinition{Name: name, Fn: fn, Retry: retry}
}

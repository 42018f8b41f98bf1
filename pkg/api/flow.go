package api

import (
	"context"
	"time"
)

// StepFunc is a single step in a flow. input is the value returned by the
// previous step (nil for the first step); the returned value is handed to
// the next step.
type StepFunc func(ctx context.Context, fc *FlowContext, input any) (any, error)

// ActionFunc is a step that only works on the FlowContext. Adapted with
// Action, it hands nil to the next step.
type ActionFunc func(ctx context.Context, fc *FlowContext) error

// GuardFunc decides whether a flow applies to a request at all.
type GuardFunc func(req *Request) bool

// Action adapts an ActionFunc into a StepFunc.
func Action(fn ActionFunc) StepFunc {
	return func(ctx context.Context, fc *FlowContext, _ any) (any, error) {
		return nil, fn(ctx, fc)
	}
}

// Always is a guard that accepts every request.
func Always(*Request) bool { return true }

// RetryPolicy configures how a failing step is retried.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Values <= 1 mean no retries.
	MaxAttempts int

	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the delay. 0 means no cap.
	MaxBackoff time.Duration

	// BackoffMultiplier grows the delay after each retry. Values <= 0
	// default to 2.0.
	BackoffMultiplier float64
}

// StepDefinition is a named step of a flow.
type StepDefinition struct {
	Name  string
	Fn    StepFunc
	Retry *RetryPolicy
}

// FlowDefinition is an ordered, optionally guarded list of steps.
type FlowDefinition struct {
	Name  string
	Guard GuardFunc
	Steps []StepDefinition
}

// Applies reports whether the flow should run for req. A nil guard
// accepts everything.
func (d FlowDefinition) Applies(req *Request) bool {
	return d.Guard == nil || d.Guard(req)
}

// StepNames returns the step names in execution order.
func (d FlowDefinition) StepNames() []string {
	names := make([]string, len(d.Steps))
	for i, s := range d.Steps {
		names[i] = s.Name
	}
	return names
}

package connect

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopStep(ctx context.Context, fc *FlowContext, input any) (any, error) {
	return input, nil
}

func TestFlowBuilder_Definition(t *testing.T) {
	guard := func(r *Request) bool { return r.Status == StatusPending }

	flow := NewFlow("Basic Flow", guard).
		Step("Add request data", CollectRequestData()).
		Do("Note", func(ctx context.Context, fc *FlowContext) error { return nil }).
		StepWithRetry("Flaky", noopStep, Retry(3).Immediate().Policy()).
		StepWithRetryBuilder("Flaky too", noopStep, Retry(2).WithConstantBackoff(time.Millisecond))

	assert.Equal(t, "Basic Flow", flow.Name())

	def := flow.Definition()
	assert.Equal(t, []string{"Add request data", "Note", "Flaky", "Flaky too"}, def.StepNames())
	assert.Nil(t, def.Steps[0].Retry)
	require.NotNil(t, def.Steps[2].Retry)
	assert.Equal(t, 3, def.Steps[2].Retry.MaxAttempts)
	assert.Equal(t, time.Millisecond, def.Steps[3].Retry.InitialBackoff)

	assert.True(t, def.Applies(&Request{Status: StatusPending}))
	assert.False(t, def.Applies(&Request{Status: StatusApproved}))
}

func TestFlowBuilder_NilGuardAppliesToAll(t *testing.T) {
	def := NewFlow("all", nil).Step("s", noopStep).Definition()
	assert.True(t, def.Applies(&Request{ID: "PR-1"}))

	def = NewFlow("all", Always).Step("s", noopStep).Definition()
	assert.True(t, def.Applies(&Request{ID: "PR-1"}))
}

func TestFlowBuilder_DefinitionIsSnapshot(t *testing.T) {
	flow := NewFlow("snap", nil).Step("a", noopStep)
	def := flow.Definition()

	flow.Step("b", noopStep)

	assert.Len(t, def.Steps, 1)
	assert.Len(t, flow.Definition().Steps, 2)
}

func TestFlowBuilder_RetryPolicyIsCopied(t *testing.T) {
	policy := Retry(3).Policy()
	flow := NewFlow("copy", nil).StepWithRetry("s", noopStep, policy)

	policy.MaxAttempts = 10
	assert.Equal(t, 3, flow.Definition().Steps[0].Retry.MaxAttempts)
}

func TestFlowBuilder_GuardCanBeReplaced(t *testing.T) {
	def := NewFlow("g", nil).
		Guard(func(*Request) bool { return false }).
		Step("s", noopStep).
		Definition()
	assert.False(t, def.Applies(&Request{}))
}

func TestFlowBuilder_PanicsOnInvalidStep(t *testing.T) {
	assert.Panics(t, func() { NewFlow("p", nil).Step("", noopStep) })
	assert.Panics(t, func() { NewFlow("p", nil).Step("nil", nil) })
	assert.Panics(t, func() { NewFlow("p", nil).Do("nil", nil) })
}

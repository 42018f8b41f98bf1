package api

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigMissing is returned when a required setting is absent.
	ErrConfigMissing = errors.New("configuration missing")

	// ErrListRequests is returned when the remote listing call fails.
	ErrListRequests = errors.New("list requests failed")

	// ErrMalformedFilter is returned when a filter cannot be evaluated.
	ErrMalformedFilter = errors.New("malformed filter")

	// ErrStepFailed is wrapped by every StepError.
	ErrStepFailed = errors.New("step failed")

	// ErrSkip can be returned by a step to stop the flow for the current
	// request without failing it.
	ErrSkip = errors.New("skip request")

	// ErrNotPending is returned when approving a request that is not
	// pending.
	ErrNotPending = errors.New("request is not pending")

	// ErrInvalidApproval is returned for an empty template id or tile.
	ErrInvalidApproval = errors.New("invalid approval")

	// ErrNoApprover is returned when a flow approves without an approver.
	ErrNoApprover = errors.New("no approver configured")

	// ErrNoFlow is returned when processing without any step.
	ErrNoFlow = errors.New("no flow configured")
)

// StepError reports which step of a flow failed for which request.
type StepError struct {
	Flow      string
	Step      string
	Index     int
	RequestID string
	Err       error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("request %s: flow %q: step %q: %v", e.RequestID, e.Flow, e.Step, e.Err)
}

// Unwrap exposes both ErrStepFailed and the step's own error.
func (e *StepError) Unwrap() []error {
	return []error{ErrStepFailed, e.Err}
}

// Skip returns an error that stops the flow for the current request,
// recording reason.
func Skip(reason string) error {
	return fmt.Errorf("%w: %s", ErrSkip, reason)
}

// IsSkip reports whether err asks to skip the current request.
func IsSkip(err error) bool {
	return errors.Is(err, ErrSkip)
}

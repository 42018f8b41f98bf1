package api

import "time"

// RunStatus is the outcome of processing one request with one flow.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunSkipped   RunStatus = "skipped"
)

// StepStatus is the outcome of a single step.
type StepStatus string

const (
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// StepRecord is the history entry of one executed step.
type StepRecord struct {
	Name     string        `json:"name"`
	Status   StepStatus    `json:"status"`
	Attempts int           `json:"attempts"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Run records the processing of one request by one flow.
type Run struct {
	ID        string
	FlowName  string
	RequestID string
	Status    RunStatus

	// CurrentStep is the 0-based index of the step being (or last) run.
	CurrentStep int
	Steps       []StepRecord

	// Data is the FlowContext key/value store at the end of the run.
	Data map[string]any

	// Output is the value returned by the last executed step.
	Output any

	// Reason explains a skipped run ("guard" or the skip error text).
	Reason string

	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Clone returns a copy that shares no mutable state with r.
func (r *Run) Clone() *Run {
	if r == nil {
		return nil
	}
	c := *r
	c.Steps = append([]StepRecord(nil), r.Steps...)
	if r.Data != nil {
		c.Data = make(map[string]any, len(r.Data))
		for k, v := range r.Data {
			c.Data[k] = v
		}
	}
	return &c
}

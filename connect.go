package connect

import "github.com/petrijr/connect/pkg/api"

// Re-export key types so users don't need to dig into pkg/api.

type (
	Request              = api.Request
	RequestStatus        = api.RequestStatus
	Query                = api.Query
	Filter               = api.Filter
	FlowDefinition       = api.FlowDefinition
	StepDefinition       = api.StepDefinition
	StepFunc             = api.StepFunc
	ActionFunc           = api.ActionFunc
	GuardFunc            = api.GuardFunc
	FlowContext          = api.FlowContext
	RetryPolicy          = api.RetryPolicy
	Run                  = api.Run
	RunStatus            = api.RunStatus
	StepRecord           = api.StepRecord
	StepError            = api.StepError
	RequestSource        = api.RequestSource
	Approver             = api.Approver
	Client               = api.Client
	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver
)

// Re-export common helpers.

var (
	NewQuery             = api.NewQuery
	Action               = api.Action
	Always               = api.Always
	Skip                 = api.Skip
	IsSkip               = api.IsSkip
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
)

// Re-export run status values for convenience.

const (
	RunRunning   = api.RunRunning
	RunCompleted = api.RunCompleted
	RunFailed    = api.RunFailed
	RunSkipped   = api.RunSkipped
)

// Re-export error values so callers can use errors.Is without importing
// pkg/api.

var (
	ErrConfigMissing   = api.ErrConfigMissing
	ErrListRequests    = api.ErrListRequests
	ErrMalformedFilter = api.ErrMalformedFilter
	ErrStepFailed      = api.ErrStepFailed
	ErrSkip            = api.ErrSkip
	ErrNotPending      = api.ErrNotPending
	ErrInvalidApproval = api.ErrInvalidApproval
	ErrNoApprover      = api.ErrNoApprover
	ErrNoFlow          = api.ErrNoFlow
)

// InSuffix marks a field as a membership filter on the wire.
const InSuffix = api.InSuffix

// Request status values.

const (
	StatusPending  = api.StatusPending
	StatusApproved = api.StatusApproved
)

package api

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// FlowContext is the per-request state shared by the steps of one flow
// run. A fresh FlowContext is created for every request and discarded
// once the flow finishes for it.
type FlowContext struct {
	runID    string
	flowName string
	request  *Request
	data     map[string]any
	approver Approver
	logger   *slog.Logger
}

// NewFlowContext creates the context for one run. approver and logger may
// be nil.
func NewFlowContext(runID, flowName string, req *Request, approver Approver, logger *slog.Logger) *FlowContext {
	if logger == nil {
		logger = slog.Default()
	}
	reqID := ""
	if req != nil {
		reqID = req.ID
	}
	return &FlowContext{
		runID:    runID,
		flowName: flowName,
		request:  req,
		data:     make(map[string]any),
		approver: approver,
		logger: logger.With(
			slog.String("flow", flowName),
			slog.String("run_id", runID),
			slog.String("request_id", reqID),
		),
	}
}

// RunID returns the id of the run this context belongs to.
func (c *FlowContext) RunID() string { return c.runID }

// FlowName returns the name of the running flow.
func (c *FlowContext) FlowName() string { return c.flowName }

// Request returns the request under processing.
func (c *FlowContext) Request() *Request { return c.request }

// Logger returns a logger annotated with the flow, run and request ids.
func (c *FlowContext) Logger() *slog.Logger { return c.logger }

// SetData stores value under key and returns c for chaining.
func (c *FlowContext) SetData(key string, value any) *FlowContext {
	c.data[key] = value
	return c
}

// Data returns the value stored under key, or nil.
func (c *FlowContext) Data(key string) any {
	return c.data[key]
}

// HasData reports whether key was set.
func (c *FlowContext) HasData(key string) bool {
	_, ok := c.data[key]
	return ok
}

// DataString returns the value stored under key formatted as a string.
// Missing keys yield "".
func (c *FlowContext) DataString(key string) string {
	v, ok := c.data[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// JoinData formats the values of keys joined by sep.
func (c *FlowContext) JoinData(sep string, keys ...string) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = c.DataString(k)
	}
	return strings.Join(parts, sep)
}

// Snapshot returns a copy of the key/value store.
func (c *FlowContext) Snapshot() map[string]any {
	out := make(map[string]any, len(c.data))
	for k, v := range c.data {
		out[k] = v
	}
	return out
}

// ApproveByTemplate approves the request using an activation template.
// On success the context's request is replaced by the approved one.
func (c *FlowContext) ApproveByTemplate(ctx context.Context, templateID string) error {
	if c.approver == nil {
		return ErrNoApprover
	}
	if templateID == "" {
		return fmt.Errorf("%w: empty template id", ErrInvalidApproval)
	}
	updated, err := c.approver.ApproveByTemplate(ctx, c.request.ID, templateID)
	if err != nil {
		return err
	}
	c.replaceRequest(updated)
	return nil
}

// ApproveByTile approves the request with a free-form (markdown)
// activation tile. On success the context's request is replaced by the
// approved one.
func (c *FlowContext) ApproveByTile(ctx context.Context, tile string) error {
	if c.approver == nil {
		return ErrNoApprover
	}
	if tile == "" {
		return fmt.Errorf("%w: empty tile", ErrInvalidApproval)
	}
	updated, err := c.approver.ApproveByTile(ctx, c.request.ID, tile)
	if err != nil {
		return err
	}
	c.replaceRequest(updated)
	return nil
}

func (c *FlowContext) replaceRequest(updated *Request) {
	if updated != nil {
		c.request = updated
		return
	}
	c.request.Status = StatusApproved
	c.request.Raw = nil
}

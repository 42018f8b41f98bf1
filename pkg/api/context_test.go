package api

import (
	"context"
	"errors"
	"testing"
)

type stubApprover struct {
	calls      []string
	templateID string
	tile       string
	err        error
}

func (s *stubApprover) ApproveByTemplate(ctx context.Context, requestID, templateID string) (*Request, error) {
	s.calls = append(s.calls, "template:"+requestID)
	s.templateID = templateID
	if s.err != nil {
		return nil, s.err
	}
	return &Request{ID: requestID, Status: StatusApproved}, nil
}

func (s *stubApprover) ApproveByTile(ctx context.Context, requestID, tile string) (*Request, error) {
	s.calls = append(s.calls, "tile:"+requestID)
	s.tile = tile
	if s.err != nil {
		return nil, s.err
	}
	return nil, nil
}

func newPendingRequest() *Request {
	return &Request{
		ID:     "PR-1",
		Status: StatusPending,
		Asset: Asset{
			ID:         "AS-1",
			Connection: Connection{ID: "CT-1"},
			Product:    Product{ID: "PRD-1"},
		},
	}
}

func TestFlowContext_SetDataChainsAndReads(t *testing.T) {
	fc := NewFlowContext("run-1", "trace", newPendingRequest(), nil, nil)

	same := fc.SetData("requestId", fc.Request().ID).
		SetData("count", 3).
		SetData("flag", true)
	if same != fc {
		t.Fatalf("SetData should return the same context")
	}

	if fc.Data("requestId") != "PR-1" {
		t.Fatalf("unexpected requestId: %v", fc.Data("requestId"))
	}
	if fc.DataString("count") != "3" || fc.DataString("flag") != "true" {
		t.Fatalf("unexpected string forms: %q %q", fc.DataString("count"), fc.DataString("flag"))
	}
	if fc.DataString("missing") != "" || fc.HasData("missing") {
		t.Fatalf("missing key should read as empty")
	}
	if got := fc.JoinData(" : ", "requestId", "count"); got != "PR-1 : 3" {
		t.Fatalf("unexpected join: %q", got)
	}
}

func TestFlowContext_SnapshotIsCopy(t *testing.T) {
	fc := NewFlowContext("run-1", "trace", newPendingRequest(), nil, nil)
	fc.SetData("a", 1)

	snap := fc.Snapshot()
	snap["a"] = 2
	snap["b"] = 3

	if fc.Data("a") != 1 || fc.HasData("b") {
		t.Fatalf("snapshot mutations leaked into context")
	}
}

func TestFlowContext_ApproveByTemplateReplacesRequest(t *testing.T) {
	ap := &stubApprover{}
	fc := NewFlowContext("run-1", "approve", newPendingRequest(), ap, nil)

	if err := fc.ApproveByTemplate(context.Background(), "TL-000-000-000"); err != nil {
		t.Fatalf("ApproveByTemplate failed: %v", err)
	}
	if ap.templateID != "TL-000-000-000" {
		t.Fatalf("unexpected template id %q", ap.templateID)
	}
	if fc.Request().Status != StatusApproved {
		t.Fatalf("expected approved request, got %q", fc.Request().Status)
	}
}

func TestFlowContext_ApproveByTileMarksApprovedWhenNoBody(t *testing.T) {
	ap := &stubApprover{}
	fc := NewFlowContext("run-1", "approve", newPendingRequest(), ap, nil)

	if err := fc.ApproveByTile(context.Background(), "Markdown text"); err != nil {
		t.Fatalf("ApproveByTile failed: %v", err)
	}
	if ap.tile != "Markdown text" || len(ap.calls) != 1 {
		t.Fatalf("unexpected approver calls: %v", ap.calls)
	}
	if fc.Request().Status != StatusApproved {
		t.Fatalf("expected approved request, got %q", fc.Request().Status)
	}
}

func TestFlowContext_ApproveValidation(t *testing.T) {
	ctx := context.Background()

	fc := NewFlowContext("run-1", "approve", newPendingRequest(), nil, nil)
	if err := fc.ApproveByTemplate(ctx, "TL-1"); !errors.Is(err, ErrNoApprover) {
		t.Fatalf("expected ErrNoApprover, got %v", err)
	}

	ap := &stubApprover{}
	fc = NewFlowContext("run-1", "approve", newPendingRequest(), ap, nil)
	if err := fc.ApproveByTemplate(ctx, ""); !errors.Is(err, ErrInvalidApproval) {
		t.Fatalf("expected ErrInvalidApproval, got %v", err)
	}
	if err := fc.ApproveByTile(ctx, ""); !errors.Is(err, ErrInvalidApproval) {
		t.Fatalf("expected ErrInvalidApproval, got %v", err)
	}
	if len(ap.calls) != 0 {
		t.Fatalf("approver must not be called for invalid input")
	}
}

func TestFlowContext_ApproveErrorKeepsRequest(t *testing.T) {
	ap := &stubApprover{err: ErrNotPending}
	req := newPendingRequest()
	fc := NewFlowContext("run-1", "approve", req, ap, nil)

	if err := fc.ApproveByTemplate(context.Background(), "TL-1"); !errors.Is(err, ErrNotPending) {
		t.Fatalf("expected ErrNotPending, got %v", err)
	}
	if fc.Request() != req || req.Status != StatusPending {
		t.Fatalf("request must be untouched after a failed approval")
	}
}

func TestStepError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := error(&StepError{Flow: "f", Step: "a", RequestID: "PR-1", Err: cause})

	if !errors.Is(err, ErrStepFailed) || !errors.Is(err, cause) {
		t.Fatalf("StepError should wrap both ErrStepFailed and the cause")
	}
	if err.Error() != `request PR-1: flow "f": step "a": boom` {
		t.Fatalf("unexpected message: %s", err)
	}
}

func TestSkip(t *testing.T) {
	err := Skip("not for us")
	if !IsSkip(err) {
		t.Fatalf("expected skip error")
	}
	if IsSkip(errors.New("other")) {
		t.Fatalf("plain errors are not skips")
	}
}

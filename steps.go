package connect

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/petrijr/connect/pkg/api"
	"github.com/petrijr/connect/pkg/logging"
)

// Keys written by CollectRequestData.
const (
	KeyRequestID    = "requestId"
	KeyAssetID      = "assetId"
	KeyConnectionID = "connectionId"
	KeyProductID    = "productId"
	KeyStatus       = "status"
)

// TraceKeys are the context keys TraceRequestData prints, in order.
var TraceKeys = []string{KeyRequestID, KeyAssetID, KeyConnectionID, KeyProductID, KeyStatus}

// CollectRequestData returns a step that copies the request, asset,
// connection and product ids plus the request status into the context.
// It hands the request id to the next step.
func CollectRequestData() StepFunc {
	return func(ctx context.Context, fc *FlowContext, _ any) (any, error) {
		req := fc.Request()
		fc.SetData(KeyRequestID, req.ID).
			SetData(KeyAssetID, req.Asset.ID).
			SetData(KeyConnectionID, req.Asset.Connection.ID).
			SetData(KeyProductID, req.Asset.Product.ID).
			SetData(KeyStatus, string(req.Status))
		return req.ID, nil
	}
}

// TraceRequestData returns a step that joins the TraceKeys values as
// "requestId : assetId : connectionId : productId : status", logs the
// line and, when w is not nil, writes it to w. The line is handed to the
// next step.
func TraceRequestData(w io.Writer) StepFunc {
	return func(ctx context.Context, fc *FlowContext, _ any) (any, error) {
		line := fc.JoinData(" : ", TraceKeys...)
		fc.Logger().Info("Request data", slog.String("trace", line))
		if w != nil {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return nil, fmt.Errorf("write trace: %w", err)
			}
		}
		return line, nil
	}
}

// ApproveByTemplateStep returns a step approving the request with the
// given activation template. The input is passed through.
func ApproveByTemplateStep(templateID string) StepFunc {
	return func(ctx context.Context, fc *FlowContext, input any) (any, error) {
		if err := fc.ApproveByTemplate(ctx, templateID); err != nil {
			return nil, err
		}
		fc.Logger().Info("Request approved", slog.String("template_id", templateID))
		return input, nil
	}
}

// ApproveByTileStep returns a step approving the request with a
// free-form activation tile. The input is passed through.
func ApproveByTileStep(tile string) StepFunc {
	return func(ctx context.Context, fc *FlowContext, input any) (any, error) {
		if err := fc.ApproveByTile(ctx, tile); err != nil {
			return nil, err
		}
		fc.Logger().Info("Request approved by tile")
		return input, nil
	}
}

// SkipUnless returns a step that stops the flow for requests not matching
// pred without failing them. Matching requests pass their input through.
func SkipUnless(pred GuardFunc, reason string) StepFunc {
	return func(ctx context.Context, fc *FlowContext, input any) (any, error) {
		if !pred(fc.Request()) {
			fc.Logger().Debug("Skipping request", logging.RequestID(fc.Request().ID), slog.String("reason", reason))
			return nil, api.Skip(reason)
		}
		return input, nil
	}
}

// TypedStep wraps a strongly-typed function into a StepFunc. A nil input
// becomes the zero value of I; any other input of the wrong type fails
// the step.
//
//	connect.TypedStep(func(ctx context.Context, fc *connect.FlowContext, id string) (int, error) { ... })
func TypedStep[I, O any](fn func(context.Context, *FlowContext, I) (O, error)) StepFunc {
	return func(ctx context.Context, fc *FlowContext, input any) (any, error) {
		var in I
		if input != nil {
			v, ok := input.(I)
			if !ok {
				return nil, fmt.Errorf("typed step: input is %T, want %T", input, in)
			}
			in = v
		}
		return fn(ctx, fc, in)
	}
}

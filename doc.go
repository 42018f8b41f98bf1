// Package connect processes asset requests of a remote marketplace API with
// small, ordered flows of Go functions.
//
// A processing pass lists the requests matching a Query, then runs a Flow
// once per request. Requests are handled one at a time in the order the
// API returns them, and the steps of a flow run in the order they were
// added.
//
// # Core Concepts
//
//  1. Env
//  2. Query
//  3. FlowBuilder
//  4. StepFunc and FlowContext
//  5. Processor
//
// # Env
//
// Env is built once from a config.Config. It owns the logger, the remote
// client (or a fixtures file for dry runs) and the run store, and is
// closed on shutdown. Nothing in this package relies on global settings.
//
// # Query
//
// Query accumulates filters for the listing call:
//
//	q := connect.NewQuery().
//	    Equal("asset.product.id__in", env.Config.ProductsString()).
//	    Equal("status", "pending")
//
// Filters are passed through unaltered; the builder does not validate
// field paths or values.
//
// # FlowBuilder
//
//	flow := connect.NewFlow("Basic Flow", nil).
//	    Step("Add request data", connect.CollectRequestData()).
//	    Step("Trace request data", connect.TraceRequestData(os.Stdout))
//
// The second argument of NewFlow is a guard. When it rejects a request no
// step runs for it.
//
// # StepFunc
//
//	type StepFunc func(ctx context.Context, fc *FlowContext, input any) (any, error)
//
// Each request gets a fresh FlowContext holding the request, a key/value
// store shared by the steps, and approval helpers. input is the value the
// previous step returned (nil for the first step). Steps that only need
// the context can be added with Do.
//
// A step error stops the remaining steps of that request only; the pass
// continues with the next request. Returning Skip(reason) stops the flow
// without counting the request as failed.
//
// # Processor
//
//	res, err := env.NewProcessor().
//	    Flow(flow.Definition()).
//	    ProcessAssetRequests(ctx, q)
//
// The Result counts completed, failed and skipped requests; err joins the
// error of every failed request. Every run is recorded in the RunStore.
//
// For scheduled passes see package pkg/worker; LocalRunner bundles an
// in-memory source and store for development and tests.
package connect

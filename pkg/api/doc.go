// Package api contains the core building blocks used by the connect
// request processor. It provides the data model of the remote requests,
// the query builder used to select them, and the primitives for defining
// flows and observing their execution.
//
// Most users interact with the higher-level connect package, which
// re-exports selected types and helpers from this package. The api package
// is intended for custom integrations: alternative request sources, run
// stores or observers.
//
// # Requests
//
// A Request is the remote entity under processing. It carries an asset
// with nested connection and product references, and a status. Requests
// are read-mostly: the only mutation a flow can perform is approval,
// which moves a pending request to approved either by template or by
// tile.
//
// # Queries
//
// A Query accumulates (field, operator, value) filters for the remote
// listing call:
//
//	q := api.NewQuery().
//	    In("asset.product.id", "PRD-1", "PRD-2").
//	    Equal("status", api.StatusPending)
//
// Filters are never validated or de-duplicated; they reach the request
// source exactly as they were added.
//
// # Flows and Steps
//
// A FlowDefinition is an ordered list of named steps plus an optional
// guard. For every request the guard accepts, the steps run in
// registration order. Each step receives the per-request FlowContext and
// the value returned by the previous step:
//
//	type StepFunc func(ctx context.Context, fc *FlowContext, input any) (any, error)
//
// The FlowContext is created fresh for each request and keeps a
// key/value store that earlier steps populate for later ones.
//
// # Observability
//
// The Observer interface receives run and step lifecycle callbacks.
// LoggingObserver, BasicMetrics and CompositeObserver are ready-made
// implementations.
package api

package api

import "context"

// RequestSource lists remote requests matching a query. Requests are
// returned in the order the remote source yields them.
type RequestSource interface {
	ListRequests(ctx context.Context, resource string, q *Query) ([]*Request, error)
}

// Approver moves a pending request to approved. It returns the updated
// request.
type Approver interface {
	ApproveByTemplate(ctx context.Context, requestID, templateID string) (*Request, error)
	ApproveByTile(ctx context.Context, requestID, tile string) (*Request, error)
}

// Client is a remote API that can both list and approve requests.
type Client interface {
	RequestSource
	Approver
}

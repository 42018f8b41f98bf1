package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/petrijr/connect/pkg/api"
)

// ErrRequestNotFound is returned when approving an unknown request.
var ErrRequestNotFound = errors.New("request not found")

// Approval records one approval made through a MemorySource.
type Approval struct {
	RequestID  string
	TemplateID string
	Tile       string
}

// MemorySource serves requests from memory. Filters are evaluated on the
// raw JSON documents, so any field path of the remote schema can be
// queried. It approves requests in place.
type MemorySource struct {
	mu        sync.Mutex
	docs      [][]byte
	approvals []Approval
}

var _ api.Client = (*MemorySource)(nil)

// NewMemorySource creates a source holding reqs in order.
func NewMemorySource(reqs ...*api.Request) (*MemorySource, error) {
	s := &MemorySource{}
	if err := s.Add(reqs...); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadFixtures reads a JSON array of requests from path.
func LoadFixtures(path string) (*MemorySource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}

	var docs []json.RawMessage
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parse fixtures %s: %w", path, err)
	}

	s := &MemorySource{}
	for i, doc := range docs {
		if !gjson.GetBytes(doc, "id").Exists() {
			return nil, fmt.Errorf("fixture %d in %s has no id", i, path)
		}
		s.docs = append(s.docs, []byte(doc))
	}
	return s, nil
}

// Add appends requests to the source.
func (s *MemorySource) Add(reqs ...*api.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, req := range reqs {
		doc := req.Document()
		if doc == nil {
			return fmt.Errorf("encode request %s", req.ID)
		}
		s.docs = append(s.docs, slices.Clone(doc))
	}
	return nil
}

// ListRequests returns the requests matching every filter of q in
// insertion order. Only the "requests" resource is served.
func (s *MemorySource) ListRequests(ctx context.Context, resource string, q *api.Query) ([]*api.Request, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if resource != api.ResourceRequests {
		return nil, fmt.Errorf("unknown resource %q", resource)
	}

	filters := q.Filters()
	for _, f := range filters {
		if f.Field == "" {
			return nil, fmt.Errorf("%w: empty field", api.ErrMalformedFilter)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*api.Request
	for _, doc := range s.docs {
		if !matchesAll(doc, filters) {
			continue
		}
		req, err := decodeRequest(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, nil
}

// ApproveByTemplate approves a pending request with a template id.
func (s *MemorySource) ApproveByTemplate(ctx context.Context, requestID, templateID string) (*api.Request, error) {
	if templateID == "" {
		return nil, fmt.Errorf("%w: empty template id", api.ErrInvalidApproval)
	}
	return s.approve(Approval{RequestID: requestID, TemplateID: templateID})
}

// ApproveByTile approves a pending request with an activation tile.
func (s *MemorySource) ApproveByTile(ctx context.Context, requestID, tile string) (*api.Request, error) {
	if tile == "" {
		return nil, fmt.Errorf("%w: empty tile", api.ErrInvalidApproval)
	}
	return s.approve(Approval{RequestID: requestID, Tile: tile})
}

// Approvals returns the approvals made so far.
func (s *MemorySource) Approvals() []Approval {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.approvals)
}

func (s *MemorySource) approve(a Approval) (*api.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, doc := range s.docs {
		if gjson.GetBytes(doc, "id").String() != a.RequestID {
			continue
		}
		if gjson.GetBytes(doc, "status").String() != string(api.StatusPending) {
			return nil, fmt.Errorf("%w: %s", api.ErrNotPending, a.RequestID)
		}

		var fields map[string]any
		if err := json.Unmarshal(doc, &fields); err != nil {
			return nil, err
		}
		fields["status"] = string(api.StatusApproved)
		fields["updated"] = time.Now().UTC().Format(time.RFC3339)

		updated, err := json.Marshal(fields)
		if err != nil {
			return nil, err
		}
		s.docs[i] = updated
		s.approvals = append(s.approvals, a)
		return decodeRequest(updated)
	}
	return nil, fmt.Errorf("%w: %s", ErrRequestNotFound, a.RequestID)
}

func decodeRequest(doc []byte) (*api.Request, error) {
	var req api.Request
	if err := json.Unmarshal(doc, &req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	return &req, nil
}

func matchesAll(doc []byte, filters []api.Filter) bool {
	for _, f := range filters {
		if !matches(doc, f) {
			return false
		}
	}
	return true
}

// matches evaluates one filter. A field ending in "__in" is a membership
// test whatever its operator.
func matches(doc []byte, f api.Filter) bool {
	field := f.Field
	in := f.Op == api.OpIn
	if strings.HasSuffix(field, api.InSuffix) {
		field = strings.TrimSuffix(field, api.InSuffix)
		in = true
	}

	value := gjson.GetBytes(doc, field)
	if !value.Exists() {
		return false
	}

	if !in {
		return value.String() == f.Value()
	}

	var members []string
	for _, v := range f.Values {
		members = append(members, strings.Split(v, ",")...)
	}
	return slices.Contains(members, value.String())
}

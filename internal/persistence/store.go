package persistence

import (
	"context"
	"errors"
	"sort"

	"github.com/petrijr/connect/pkg/api"
)

// ErrRunNotFound is returned when a run id is unknown to the store.
var ErrRunNotFound = errors.New("run not found")

// RunFilter selects runs from the store.
// Empty strings mean "no filter" for that field; Limit <= 0 means no limit.
type RunFilter struct {
	FlowName  string
	RequestID string
	Status    api.RunStatus
	Limit     int
}

// Matches reports whether run passes every non-empty field of f.
func (f RunFilter) Matches(run *api.Run) bool {
	if f.FlowName != "" && run.FlowName != f.FlowName {
		return false
	}
	if f.RequestID != "" && run.RequestID != f.RequestID {
		return false
	}
	if f.Status != "" && run.Status != f.Status {
		return false
	}
	return true
}

// RunStore keeps the history of flow runs. It is never consulted to decide
// whether a request gets processed.
type RunStore interface {
	SaveRun(ctx context.Context, run *api.Run) error
	// UpdateRun overwrites an existing run. It returns ErrRunNotFound if the
	// run was never saved.
	UpdateRun(ctx context.Context, run *api.Run) error
	GetRun(ctx context.Context, id string) (*api.Run, error)
	// ListRuns returns matching runs, newest first.
	ListRuns(ctx context.Context, filter RunFilter) ([]*api.Run, error)
}

// sortAndLimit orders runs newest first (ties by id) and applies the
// filter limit. Backends without server-side ordering use it.
func sortAndLimit(runs []*api.Run, limit int) []*api.Run {
	sort.SliceStable(runs, func(i, j int) bool {
		if !runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].StartedAt.After(runs[j].StartedAt)
		}
		return runs[i].ID < runs[j].ID
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs
}

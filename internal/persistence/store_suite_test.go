package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/petrijr/connect/pkg/api"
)

// RunStoreSuite exercises the RunStore contract. Backend tests embed it
// and set newStore.
type RunStoreSuite struct {
	suite.Suite
	newStore func() RunStore
	store    RunStore
	ctx      context.Context
}

func (s *RunStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.newStore()
}

func sampleRun(id, flow, requestID string, status api.RunStatus, started time.Time) *api.Run {
	return &api.Run{
		ID:          id,
		FlowName:    flow,
		RequestID:   requestID,
		Status:      status,
		CurrentStep: 0,
		StartedAt:   started,
	}
}

func (s *RunStoreSuite) TestSaveGetUpdate() {
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	run := sampleRun("run-1", "trace", "PR-1", api.RunRunning, started)

	s.Require().NoError(s.store.SaveRun(s.ctx, run))

	got, err := s.store.GetRun(s.ctx, "run-1")
	s.Require().NoError(err)
	s.Equal("trace", got.FlowName)
	s.Equal("PR-1", got.RequestID)
	s.Equal(api.RunRunning, got.Status)
	s.True(got.StartedAt.Equal(started))
	s.True(got.FinishedAt.IsZero())
	s.Nil(got.Err)

	run.Status = api.RunFailed
	run.CurrentStep = 1
	run.Steps = []api.StepRecord{
		{Name: "Add request data", Status: api.StepCompleted, Attempts: 1, Duration: time.Millisecond},
		{Name: "Trace request data", Status: api.StepFailed, Attempts: 3, Error: "boom"},
	}
	run.Data = map[string]any{"requestId": "PR-1", "count": 2}
	run.Output = "partial"
	run.Err = errors.New("boom")
	run.FinishedAt = started.Add(time.Second)
	s.Require().NoError(s.store.UpdateRun(s.ctx, run))

	got, err = s.store.GetRun(s.ctx, "run-1")
	s.Require().NoError(err)
	s.Equal(api.RunFailed, got.Status)
	s.Equal(1, got.CurrentStep)
	s.Require().Len(got.Steps, 2)
	s.Equal(api.StepFailed, got.Steps[1].Status)
	s.Equal(3, got.Steps[1].Attempts)
	s.Equal("boom", got.Steps[1].Error)
	s.Equal(time.Millisecond, got.Steps[0].Duration)
	s.Equal("PR-1", got.Data["requestId"])
	s.EqualValues(2, got.Data["count"])
	s.Equal("partial", got.Output)
	s.Require().Error(got.Err)
	s.Equal("boom", got.Err.Error())
	s.True(got.FinishedAt.Equal(started.Add(time.Second)))
}

func (s *RunStoreSuite) TestGetUnknown() {
	_, err := s.store.GetRun(s.ctx, "missing")
	s.ErrorIs(err, ErrRunNotFound)
}

func (s *RunStoreSuite) TestUpdateUnknown() {
	err := s.store.UpdateRun(s.ctx, sampleRun("missing", "f", "PR-1", api.RunCompleted, time.Now()))
	s.ErrorIs(err, ErrRunNotFound)
}

func (s *RunStoreSuite) TestListFiltersAndOrder() {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	runs := []*api.Run{
		sampleRun("run-1", "trace", "PR-1", api.RunCompleted, base),
		sampleRun("run-2", "trace", "PR-2", api.RunFailed, base.Add(time.Minute)),
		sampleRun("run-3", "approve", "PR-1", api.RunSkipped, base.Add(2*time.Minute)),
		sampleRun("run-4", "trace", "PR-1", api.RunRunning, base.Add(3*time.Minute)),
	}
	for _, r := range runs {
		s.Require().NoError(s.store.SaveRun(s.ctx, r))
	}

	// run-4 finishes; it must leave the running status.
	runs[3].Status = api.RunCompleted
	s.Require().NoError(s.store.UpdateRun(s.ctx, runs[3]))

	all, err := s.store.ListRuns(s.ctx, RunFilter{})
	s.Require().NoError(err)
	s.Equal([]string{"run-4", "run-3", "run-2", "run-1"}, runIDs(all))

	trace, err := s.store.ListRuns(s.ctx, RunFilter{FlowName: "trace"})
	s.Require().NoError(err)
	s.Equal([]string{"run-4", "run-2", "run-1"}, runIDs(trace))

	pr1Completed, err := s.store.ListRuns(s.ctx, RunFilter{RequestID: "PR-1", Status: api.RunCompleted})
	s.Require().NoError(err)
	s.Equal([]string{"run-4", "run-1"}, runIDs(pr1Completed))

	running, err := s.store.ListRuns(s.ctx, RunFilter{Status: api.RunRunning})
	s.Require().NoError(err)
	s.Empty(running)

	limited, err := s.store.ListRuns(s.ctx, RunFilter{FlowName: "trace", Limit: 2})
	s.Require().NoError(err)
	s.Equal([]string{"run-4", "run-2"}, runIDs(limited))
}

func runIDs(runs []*api.Run) []string {
	ids := make([]string, 0, len(runs))
	for _, r := range runs {
		ids = append(ids, r.ID)
	}
	return ids
}

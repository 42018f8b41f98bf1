package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/petrijr/connect/pkg/api"
)

// runRecord is the storage shape of an api.Run shared by every backend.
// Free-form values (steps, data, output) are JSON documents.
type runRecord struct {
	ID          string `json:"id" bson:"_id"`
	FlowName    string `json:"flow_name" bson:"flow_name"`
	RequestID   string `json:"request_id" bson:"request_id"`
	Status      string `json:"status" bson:"status"`
	CurrentStep int    `json:"current_step" bson:"current_step"`
	Steps       []byte `json:"steps,omitempty" bson:"steps,omitempty"`
	Data        []byte `json:"data,omitempty" bson:"data,omitempty"`
	Output      []byte `json:"output,omitempty" bson:"output,omitempty"`
	Reason      string `json:"reason,omitempty" bson:"reason,omitempty"`
	Error       string `json:"error,omitempty" bson:"error,omitempty"`
	StartedAt   int64  `json:"started_at" bson:"started_at"`
	FinishedAt  int64  `json:"finished_at" bson:"finished_at"`
}

// EncodeValue serializes v as JSON. nil encodes to nil.
func EncodeValue(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// DecodeValue parses data produced by EncodeValue into T.
// Empty input yields the zero value.
func DecodeValue[T any](data []byte) (T, error) {
	var v T
	if len(data) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode value: %w", err)
	}
	return v, nil
}

func toRecord(run *api.Run) (*runRecord, error) {
	steps, err := EncodeValue(run.Steps)
	if err != nil {
		return nil, fmt.Errorf("encode steps: %w", err)
	}
	var data []byte
	if len(run.Data) > 0 {
		if data, err = EncodeValue(run.Data); err != nil {
			return nil, fmt.Errorf("encode data: %w", err)
		}
	}
	output, err := EncodeValue(run.Output)
	if err != nil {
		// Unencodable outputs are kept in printed form.
		output, _ = json.Marshal(fmt.Sprint(run.Output))
	}

	rec := &runRecord{
		ID:          run.ID,
		FlowName:    run.FlowName,
		RequestID:   run.RequestID,
		Status:      string(run.Status),
		CurrentStep: run.CurrentStep,
		Steps:       steps,
		Data:        data,
		Output:      output,
		Reason:      run.Reason,
		StartedAt:   unixNano(run.StartedAt),
		FinishedAt:  unixNano(run.FinishedAt),
	}
	if run.Err != nil {
		rec.Error = run.Err.Error()
	}
	return rec, nil
}

func fromRecord(rec *runRecord) (*api.Run, error) {
	steps, err := DecodeValue[[]api.StepRecord](rec.Steps)
	if err != nil {
		return nil, err
	}
	data, err := DecodeValue[map[string]any](rec.Data)
	if err != nil {
		return nil, err
	}
	output, err := DecodeValue[any](rec.Output)
	if err != nil {
		return nil, err
	}

	run := &api.Run{
		ID:          rec.ID,
		FlowName:    rec.FlowName,
		RequestID:   rec.RequestID,
		Status:      api.RunStatus(rec.Status),
		CurrentStep: rec.CurrentStep,
		Steps:       steps,
		Data:        data,
		Output:      output,
		Reason:      rec.Reason,
		StartedAt:   fromUnixNano(rec.StartedAt),
		FinishedAt:  fromUnixNano(rec.FinishedAt),
	}
	if rec.Error != "" {
		run.Err = errors.New(rec.Error)
	}
	return run, nil
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

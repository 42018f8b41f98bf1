package persistence

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/petrijr/connect/pkg/api"
)

// RedisRunStore is a RunStore backed by Redis.
// It uses a simple key structure:
//
//	<prefix>:run:<id>              => JSON-encoded runRecord
//	<prefix>:idx:all               => SET of all run IDs
//	<prefix>:idx:flow:<flow>       => SET of run IDs for a given flow
//	<prefix>:idx:request:<request> => SET of run IDs for a given request
//	<prefix>:idx:status:<status>   => SET of run IDs for a given status
//
// Status changes move the run between status sets. ListRuns intersects
// the relevant sets and re-checks each payload.
type RedisRunStore struct {
	client redis.UniversalClient
	prefix string
}

var _ RunStore = (*RedisRunStore)(nil)

// NewRedisRunStore creates a RedisRunStore.
// prefix is optional but recommended (e.g. "connect:").
func NewRedisRunStore(client redis.UniversalClient, prefix string) *RedisRunStore {
	if prefix == "" {
		prefix = "connect:"
	}
	return &RedisRunStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisRunStore) keyRun(id string) string {
	return s.prefix + "run:" + id
}

func (s *RedisRunStore) keyAll() string {
	return s.prefix + "idx:all"
}

func (s *RedisRunStore) keyFlow(name string) string {
	return s.prefix + "idx:flow:" + name
}

func (s *RedisRunStore) keyRequest(id string) string {
	return s.prefix + "idx:request:" + id
}

func (s *RedisRunStore) keyStatus(status api.RunStatus) string {
	return s.prefix + "idx:status:" + string(status)
}

func encodeRedisPayload(run *api.Run) ([]byte, error) {
	rec, err := toRecord(run)
	if err != nil {
		return nil, err
	}
	return json.Marshal(rec)
}

func decodeRedisPayload(data []byte) (*api.Run, error) {
	if len(data) == 0 {
		return nil, ErrRunNotFound
	}
	var rec runRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return fromRecord(&rec)
}

func (s *RedisRunStore) SaveRun(ctx context.Context, run *api.Run) error {
	data, err := encodeRedisPayload(run)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.keyRun(run.ID), data, 0)
	pipe.SAdd(ctx, s.keyAll(), run.ID)
	pipe.SAdd(ctx, s.keyFlow(run.FlowName), run.ID)
	pipe.SAdd(ctx, s.keyRequest(run.RequestID), run.ID)
	pipe.SAdd(ctx, s.keyStatus(run.Status), run.ID)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisRunStore) UpdateRun(ctx context.Context, run *api.Run) error {
	prev, err := s.GetRun(ctx, run.ID)
	if err != nil {
		return err
	}

	data, err := encodeRedisPayload(run)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.keyRun(run.ID), data, 0)
	if prev.Status != run.Status {
		pipe.SRem(ctx, s.keyStatus(prev.Status), run.ID)
	}
	pipe.SAdd(ctx, s.keyFlow(run.FlowName), run.ID)
	pipe.SAdd(ctx, s.keyRequest(run.RequestID), run.ID)
	pipe.SAdd(ctx, s.keyStatus(run.Status), run.ID)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisRunStore) GetRun(ctx context.Context, id string) (*api.Run, error) {
	data, err := s.client.Get(ctx, s.keyRun(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return decodeRedisPayload(data)
}

func (s *RedisRunStore) ListRuns(ctx context.Context, filter RunFilter) ([]*api.Run, error) {
	var keys []string
	if filter.FlowName != "" {
		keys = append(keys, s.keyFlow(filter.FlowName))
	}
	if filter.RequestID != "" {
		keys = append(keys, s.keyRequest(filter.RequestID))
	}
	if filter.Status != "" {
		keys = append(keys, s.keyStatus(filter.Status))
	}

	var ids []string
	var err error
	switch len(keys) {
	case 0:
		ids, err = s.client.SMembers(ctx, s.keyAll()).Result()
	case 1:
		ids, err = s.client.SMembers(ctx, keys[0]).Result()
	default:
		ids, err = s.client.SInter(ctx, keys...).Result()
	}
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*api.Run{}, nil
		}
		return nil, err
	}
	if len(ids) == 0 {
		return []*api.Run{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, s.keyRun(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	runs := make([]*api.Run, 0, len(ids))
	for _, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, err
		}
		run, err := decodeRedisPayload(data)
		if err != nil {
			return nil, err
		}
		if filter.Matches(run) {
			runs = append(runs, run)
		}
	}

	return sortAndLimit(runs, filter.Limit), nil
}

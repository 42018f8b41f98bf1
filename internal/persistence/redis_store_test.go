package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/petrijr/connect/pkg/api"
)

const testPrefix = "connect:test:"

func newTestRedisStore(t *testing.T) (*RedisRunStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})

	return NewRedisRunStore(client, testPrefix), mr
}

func TestRedisRunStoreSuite(t *testing.T) {
	suite.Run(t, &RunStoreSuite{newStore: func() RunStore {
		store, _ := newTestRedisStore(t)
		return store
	}})
}

func TestRedisRunStore_StatusIndexFollowsUpdates(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t)

	run := &api.Run{ID: "run-1", FlowName: "trace", RequestID: "PR-1", Status: api.RunRunning, StartedAt: time.Now()}
	require.NoError(t, store.SaveRun(ctx, run))
	require.True(t, mr.Exists(testPrefix+"run:run-1"))

	members, err := mr.SMembers(testPrefix + "idx:status:running")
	require.NoError(t, err)
	require.Equal(t, []string{"run-1"}, members)

	run.Status = api.RunCompleted
	require.NoError(t, store.UpdateRun(ctx, run))

	require.False(t, mr.Exists(testPrefix+"idx:status:running"))
	members, err = mr.SMembers(testPrefix + "idx:status:completed")
	require.NoError(t, err)
	require.Equal(t, []string{"run-1"}, members)

	members, err = mr.SMembers(testPrefix + "idx:request:PR-1")
	require.NoError(t, err)
	require.Equal(t, []string{"run-1"}, members)
}

func TestRedisRunStore_DefaultPrefix(t *testing.T) {
	store := NewRedisRunStore(nil, "")
	require.Equal(t, "connect:run:x", store.keyRun("x"))
}

// Package testutil starts shared database containers for integration tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const startTimeout = 3 * time.Minute

type sharedContainer struct {
	once      sync.Once
	container testcontainers.Container
	endpoint  string
	err       error
}

var (
	postgres sharedContainer
	mongo    sharedContainer
)

// PostgresDSN returns the DSN of a shared PostgreSQL container. The test is
// skipped in -short mode or when no container runtime is available.
func PostgresDSN(t *testing.T) string {
	t.Helper()
	skipShort(t)

	postgres.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
		defer cancel()

		postgres.container, postgres.err = testcontainers.Run(
			ctx, "postgres:16",
			testcontainers.WithExposedPorts("5432/tcp"),
			testcontainers.WithWaitStrategy(
				wait.ForAll(
					wait.ForListeningPort("5432/tcp"),
					wait.ForLog("ready to accept connections"),
					wait.ForSQL("5432/tcp", "pgx", func(host string, port nat.Port) string {
						return fmt.Sprintf("postgres://connect:connect@%s:%s/connect_test?sslmode=disable", host, port.Port())
					}).WithQuery("SELECT 1"),
				).WithDeadline(2*time.Minute),
			),
			testcontainers.WithEnv(map[string]string{
				"POSTGRES_USER":     "connect",
				"POSTGRES_PASSWORD": "connect",
				"POSTGRES_DB":       "connect_test",
			}),
		)
		if postgres.err != nil {
			return
		}

		endpoint, err := postgres.container.Endpoint(ctx, "")
		if err != nil {
			_ = postgres.container.Terminate(context.Background())
			postgres.err = err
			return
		}
		postgres.endpoint = fmt.Sprintf("postgres://connect:connect@%s/connect_test?sslmode=disable", endpoint)
	})

	if postgres.err != nil {
		t.Skipf("postgres container unavailable: %v", postgres.err)
	}
	return postgres.endpoint
}

// MongoURI returns the URI of a shared MongoDB container. The test is
// skipped in -short mode or when no container runtime is available.
func MongoURI(t *testing.T) string {
	t.Helper()
	skipShort(t)

	mongo.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
		defer cancel()

		mongo.container, mongo.err = testcontainers.Run(
			ctx, "mongo:7",
			testcontainers.WithExposedPorts("27017/tcp"),
			testcontainers.WithWaitStrategy(
				wait.ForListeningPort("27017/tcp"),
				wait.ForLog("mongod startup complete"),
			),
		)
		if mongo.err != nil {
			return
		}

		endpoint, err := mongo.container.Endpoint(ctx, "")
		if err != nil {
			_ = mongo.container.Terminate(context.Background())
			mongo.err = err
			return
		}
		mongo.endpoint = fmt.Sprintf("mongodb://%s", endpoint)
	})

	if mongo.err != nil {
		t.Skipf("mongo container unavailable: %v", mongo.err)
	}
	return mongo.endpoint
}

func skipShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in -short mode")
	}
}

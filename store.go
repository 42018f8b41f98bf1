package connect

import (
	"context"
	"database/sql"
	"io"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/petrijr/connect/internal/persistence"
)

type (
	RunStore  = persistence.RunStore
	RunFilter = persistence.RunFilter
)

var (
	// ErrRunNotFound is returned when a run id is unknown to a store.
	ErrRunNotFound = persistence.ErrRunNotFound

	// ErrUnsupportedStore is returned by OpenStore for an unknown dsn.
	ErrUnsupportedStore = persistence.ErrUnsupportedDSN
)

// Store constructors.
// These wrap the internal/persistence package so external callers
// never need to import internal packages.

// NewInMemoryStore returns a non-durable run store.
func NewInMemoryStore() RunStore {
	return persistence.NewInMemoryStore()
}

// NewSQLiteStore returns a run store in a SQLite database.
func NewSQLiteStore(db *sql.DB) (RunStore, error) {
	return persistence.NewSQLiteRunStore(db)
}

// NewPostgresStore returns a run store in PostgreSQL.
func NewPostgresStore(db *sql.DB) (RunStore, error) {
	return persistence.NewPostgresRunStore(db)
}

// NewRedisStore returns a run store in Redis. An empty prefix uses the
// default key prefix.
func NewRedisStore(client redis.UniversalClient, prefix string) RunStore {
	return persistence.NewRedisRunStore(client, prefix)
}

// NewMongoStore returns a run store in MongoDB. Empty names use the
// defaults.
func NewMongoStore(client *mongo.Client, database, collection string) RunStore {
	return persistence.NewMongoRunStore(client, database, collection)
}

// OpenStore connects to the store named by dsn ("memory", "sqlite:<path>",
// "postgres://...", "redis://...", "mongodb://..."). The returned Closer
// releases the connection.
func OpenStore(ctx context.Context, dsn string) (RunStore, io.Closer, error) {
	return persistence.Open(ctx, dsn)
}

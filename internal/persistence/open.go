package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	_ "modernc.org/sqlite"
)

// ErrUnsupportedDSN is returned by Open for an unknown store scheme.
var ErrUnsupportedDSN = errors.New("unsupported store dsn")

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

var nopCloser = closerFunc(func() error { return nil })

// Open selects a RunStore backend from dsn:
//
//	"" or "memory"                  in-memory store
//	"sqlite:<path>"                 SQLite file (or ":memory:")
//	"postgres://..."                PostgreSQL through pgx
//	"redis://..." / "rediss://..."  Redis
//	"mongodb://..."                 MongoDB, database "connect"
//
// The returned Closer releases the underlying connection.
func Open(ctx context.Context, dsn string) (RunStore, io.Closer, error) {
	switch {
	case dsn == "" || dsn == "memory":
		return NewInMemoryStore(), nopCloser, nil

	case strings.HasPrefix(dsn, "sqlite:"):
		path := strings.TrimPrefix(strings.TrimPrefix(dsn, "sqlite:"), "//")
		db, err := sql.Open("sqlite", path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		// One connection keeps ":memory:" databases shared and serializes writers.
		db.SetMaxOpenConns(1)
		store, err := NewSQLiteRunStore(db)
		if err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("init sqlite: %w", err)
		}
		return store, db, nil

	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		store, err := NewPostgresRunStore(db)
		if err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("init postgres: %w", err)
		}
		return store, db, nil

	case strings.HasPrefix(dsn, "redis://"), strings.HasPrefix(dsn, "rediss://"):
		opts, err := redis.ParseURL(dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		return NewRedisRunStore(client, ""), client, nil

	case strings.HasPrefix(dsn, "mongodb://"), strings.HasPrefix(dsn, "mongodb+srv://"):
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(dsn))
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, fmt.Errorf("ping mongo: %w", err)
		}
		closer := closerFunc(func() error {
			return client.Disconnect(context.Background())
		})
		return NewMongoRunStore(client, "", ""), closer, nil
	}

	return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedDSN, dsn)
}

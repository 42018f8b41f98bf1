package persistence

import (
	"database/sql"
	"strconv"
)

// PostgresRunStore is a RunStore backed by PostgreSQL.
//
// It expects an *sql.DB that uses a PostgreSQL driver (for example,
// "github.com/jackc/pgx/v5/stdlib").
//
// The caller is responsible for:
//   - importing the driver for its side effects, e.g.:
//     _ "github.com/jackc/pgx/v5/stdlib"
//   - providing a DSN via sql.Open.
type PostgresRunStore struct {
	sqlRunStore
}

var _ RunStore = (*PostgresRunStore)(nil)

// NewPostgresRunStore initializes the required schema in the given
// database and returns a new PostgresRunStore.
func NewPostgresRunStore(db *sql.DB) (*PostgresRunStore, error) {
	s := &PostgresRunStore{sqlRunStore{
		db:   db,
		bind: func(n int) string { return "$" + strconv.Itoa(n) },
	}}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresRunStore) initSchema() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			flow_name TEXT NOT NULL,
			request_id TEXT NOT NULL,
			status TEXT NOT NULL,
			current_step INTEGER NOT NULL,
			steps BYTEA,
			data BYTEA,
			output BYTEA,
			reason TEXT,
			error TEXT,
			started_at BIGINT NOT NULL,
			finished_at BIGINT NOT NULL
		);
	`); err != nil {
		return err
	}
	_, err := s.db.Exec(`CREATE INDEX IF NOT EXISTS runs_request_idx ON runs (request_id);`)
	return err
}

package persistence

import (
	"database/sql"
)

// SQLiteRunStore is a RunStore backed by SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing
// the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteRunStore struct {
	sqlRunStore
}

var _ RunStore = (*SQLiteRunStore)(nil)

// NewSQLiteRunStore initializes the required schema in the given
// database and returns a new SQLiteRunStore.
func NewSQLiteRunStore(db *sql.DB) (*SQLiteRunStore, error) {
	s := &SQLiteRunStore{sqlRunStore{
		db:   db,
		bind: func(int) string { return "?" },
	}}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteRunStore) initSchema() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			flow_name TEXT NOT NULL,
			request_id TEXT NOT NULL,
			status TEXT NOT NULL,
			current_step INTEGER NOT NULL,
			steps BLOB,
			data BLOB,
			output BLOB,
			reason TEXT,
			error TEXT,
			started_at INTEGER NOT NULL,
			finished_at INTEGER NOT NULL
		);`,
	); err != nil {
		return err
	}
	_, err := s.db.Exec(`CREATE INDEX IF NOT EXISTS runs_request_idx ON runs (request_id);`)
	return err
}

package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/petrijr/connect/pkg/api"
)

const runColumns = "id, flow_name, request_id, status, current_step, steps, data, output, reason, error, started_at, finished_at"

// sqlRunStore holds the queries shared by the SQLite and PostgreSQL
// stores. bind renders the n-th (1-based) placeholder of the dialect.
type sqlRunStore struct {
	db   *sql.DB
	bind func(n int) string
}

func (s *sqlRunStore) placeholders(from, count int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = s.bind(from + i)
	}
	return strings.Join(parts, ", ")
}

func (s *sqlRunStore) SaveRun(ctx context.Context, run *api.Run) error {
	rec, err := toRecord(run)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO runs ("+runColumns+") VALUES ("+s.placeholders(1, 12)+")",
		rec.ID,
		rec.FlowName,
		rec.RequestID,
		rec.Status,
		rec.CurrentStep,
		rec.Steps,
		rec.Data,
		rec.Output,
		rec.Reason,
		rec.Error,
		rec.StartedAt,
		rec.FinishedAt,
	)
	return err
}

func (s *sqlRunStore) UpdateRun(ctx context.Context, run *api.Run) error {
	rec, err := toRecord(run)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE runs
		SET flow_name = %s, request_id = %s, status = %s, current_step = %s, steps = %s,
			data = %s, output = %s, reason = %s, error = %s, started_at = %s, finished_at = %s
		WHERE id = %s`,
		s.bind(1), s.bind(2), s.bind(3), s.bind(4), s.bind(5),
		s.bind(6), s.bind(7), s.bind(8), s.bind(9), s.bind(10), s.bind(11),
		s.bind(12),
	)
	res, err := s.db.ExecContext(ctx, query,
		rec.FlowName,
		rec.RequestID,
		rec.Status,
		rec.CurrentStep,
		rec.Steps,
		rec.Data,
		rec.Output,
		rec.Reason,
		rec.Error,
		rec.StartedAt,
		rec.FinishedAt,
		rec.ID,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (s *sqlRunStore) GetRun(ctx context.Context, id string) (*api.Run, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+runColumns+" FROM runs WHERE id = "+s.bind(1),
		id,
	)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return fromRecord(rec)
}

func (s *sqlRunStore) ListRuns(ctx context.Context, filter RunFilter) ([]*api.Run, error) {
	query := "SELECT " + runColumns + " FROM runs"
	var args []any
	var clauses []string

	if filter.FlowName != "" {
		args = append(args, filter.FlowName)
		clauses = append(clauses, "flow_name = "+s.bind(len(args)))
	}
	if filter.RequestID != "" {
		args = append(args, filter.RequestID)
		clauses = append(clauses, "request_id = "+s.bind(len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		clauses = append(clauses, "status = "+s.bind(len(args)))
	}

	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY started_at DESC, id ASC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT " + s.bind(len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*api.Run
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		run, err := fromRecord(rec)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*runRecord, error) {
	var rec runRecord
	var reason, errStr sql.NullString
	if err := row.Scan(
		&rec.ID,
		&rec.FlowName,
		&rec.RequestID,
		&rec.Status,
		&rec.CurrentStep,
		&rec.Steps,
		&rec.Data,
		&rec.Output,
		&reason,
		&errStr,
		&rec.StartedAt,
		&rec.FinishedAt,
	); err != nil {
		return nil, err
	}
	rec.Reason = reason.String
	rec.Error = errStr.String
	return &rec, nil
}

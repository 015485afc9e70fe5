// Package persistence holds the durable Store implementations for the workflow engine.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iota-uz/wfbench/pkg/workflow"
)

// PostgresStore keeps runs in <prefix>_runs and their history in <prefix>_events.
type PostgresStore struct {
	pool   *pgxpool.Pool
	runs   pgx.Identifier
	events pgx.Identifier
}

var _ workflow.Store = (*PostgresStore)(nil)

func NewPostgresStore(pool *pgxpool.Pool, schema, prefix string) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("postgres store: pool is nil")
	}
	if prefix == "" {
		prefix = "wf"
	}
	s := &PostgresStore{pool: pool}
	if schema == "" {
		s.runs = pgx.Identifier{prefix + "_runs"}
		s.events = pgx.Identifier{prefix + "_events"}
	} else {
		s.runs = pgx.Identifier{schema, prefix + "_runs"}
		s.events = pgx.Identifier{schema, prefix + "_events"}
	}
	return s, nil
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	runs := s.runs.Sanitize()
	events := s.events.Sanitize()
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  id          TEXT        NOT NULL PRIMARY KEY,
  workflow    TEXT        NOT NULL,
  status      TEXT        NOT NULL,
  result      JSONB       NULL,
  error       TEXT        NOT NULL DEFAULT '',
  created_at  TIMESTAMPTZ NOT NULL,
  finished_at TIMESTAMPTZ NULL
);
CREATE TABLE IF NOT EXISTS %s (
  id       BIGSERIAL   NOT NULL PRIMARY KEY,
  run_id   TEXT        NOT NULL REFERENCES %s (id) ON DELETE CASCADE,
  sequence BIGINT      NOT NULL,
  type     TEXT        NOT NULL,
  step     TEXT        NOT NULL DEFAULT '',
  attempt  INT         NOT NULL DEFAULT 0,
  payload  JSONB       NULL,
  error    TEXT        NOT NULL DEFAULT '',
  at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS %s ON %s (run_id, id);
`, runs, events, runs, pgx.Identifier{s.events[len(s.events)-1] + "_run_idx"}.Sanitize(), events)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return errors.Wrap(err, "ensure workflow schema")
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, rec workflow.RunRecord) error {
	q := fmt.Sprintf(`INSERT INTO %s (id, workflow, status, created_at) VALUES ($1, $2, $3, $4)`, s.runs.Sanitize())
	if _, err := s.pool.Exec(ctx, q, rec.ID, rec.Workflow, string(rec.Status), rec.CreatedAt); err != nil {
		return errors.Wrap(err, "insert run")
	}
	return nil
}

func (s *PostgresStore) AppendEvent(ctx context.Context, ev workflow.Event) error {
	q := fmt.Sprintf(
		`INSERT INTO %s (run_id, sequence, type, step, attempt, payload, error, at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.events.Sanitize(),
	)
	_, err := s.pool.Exec(ctx, q, ev.RunID, ev.Sequence, string(ev.Type), ev.Step, ev.Attempt, nullableJSON(ev.Payload), ev.Error, ev.At)
	if err != nil {
		return errors.Wrapf(err, "append %s event", ev.Type)
	}
	return nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, id string, status workflow.RunStatus, result json.RawMessage, errMsg string, at time.Time) error {
	q := fmt.Sprintf(
		`UPDATE %s SET status = $2, result = $3, error = $4, finished_at = $5 WHERE id = $1`,
		s.runs.Sanitize(),
	)
	tag, err := s.pool.Exec(ctx, q, id, string(status), nullableJSON(result), errMsg, at)
	if err != nil {
		return errors.Wrap(err, "finish run")
	}
	if tag.RowsAffected() == 0 {
		return workflow.ErrRunNotFound
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, id string) (workflow.RunRecord, error) {
	q := fmt.Sprintf(
		`SELECT id, workflow, status, result, error, created_at, finished_at FROM %s WHERE id = $1`,
		s.runs.Sanitize(),
	)
	var (
		rec        workflow.RunRecord
		status     string
		result     []byte
		finishedAt *time.Time
	)
	err := s.pool.QueryRow(ctx, q, id).Scan(&rec.ID, &rec.Workflow, &status, &result, &rec.Error, &rec.CreatedAt, &finishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return workflow.RunRecord{}, workflow.ErrRunNotFound
	}
	if err != nil {
		return workflow.RunRecord{}, errors.Wrap(err, "select run")
	}
	rec.Status = workflow.RunStatus(status)
	if len(result) > 0 {
		rec.Result = json.RawMessage(result)
	}
	if finishedAt != nil {
		rec.FinishedAt = *finishedAt
	}
	return rec, nil
}

func (s *PostgresStore) ListEvents(ctx context.Context, id string) ([]workflow.Event, error) {
	if _, err := s.GetRun(ctx, id); err != nil {
		return nil, err
	}
	q := fmt.Sprintf(
		`SELECT run_id, sequence, type, step, attempt, payload, error, at FROM %s WHERE run_id = $1 ORDER BY id`,
		s.events.Sanitize(),
	)
	rows, err := s.pool.Query(ctx, q, id)
	if err != nil {
		return nil, errors.Wrap(err, "select events")
	}
	defer rows.Close()

	var out []workflow.Event
	for rows.Next() {
		var (
			ev      workflow.Event
			typ     string
			payload []byte
		)
		if err := rows.Scan(&ev.RunID, &ev.Sequence, &typ, &ev.Step, &ev.Attempt, &payload, &ev.Error, &ev.At); err != nil {
			return nil, errors.Wrap(err, "scan event")
		}
		ev.Type = workflow.EventType(typ)
		if len(payload) > 0 {
			ev.Payload = json.RawMessage(payload)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate events")
	}
	return out, nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

package persistence

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/iota-uz/wfbench/pkg/workflow"
)

// RedisStore keeps each run in a hash at <prefix>:<id> and its history in a list at
// <prefix>:<id>:events. Both keys expire ttl after the last write.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ workflow.Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "wfbench:runs"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) runKey(id string) string {
	return s.prefix + ":" + id
}

func (s *RedisStore) eventsKey(id string) string {
	return s.prefix + ":" + id + ":events"
}

func (s *RedisStore) expire(ctx context.Context, pipe redis.Pipeliner, keys ...string) {
	if s.ttl <= 0 {
		return
	}
	for _, k := range keys {
		pipe.Expire(ctx, k, s.ttl)
	}
}

func (s *RedisStore) CreateRun(ctx context.Context, rec workflow.RunRecord) error {
	key := s.runKey(rec.ID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"id", rec.ID,
			"workflow", rec.Workflow,
			"status", string(rec.Status),
			"created_at", rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		)
		s.expire(ctx, pipe, key)
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "redis create run")
	}
	return nil
}

func (s *RedisStore) exists(ctx context.Context, id string) error {
	n, err := s.client.Exists(ctx, s.runKey(id)).Result()
	if err != nil {
		return errors.Wrap(err, "redis exists")
	}
	if n == 0 {
		return workflow.ErrRunNotFound
	}
	return nil
}

func (s *RedisStore) AppendEvent(ctx context.Context, ev workflow.Event) error {
	if err := s.exists(ctx, ev.RunID); err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	key := s.eventsKey(ev.RunID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		s.expire(ctx, pipe, key)
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "redis append %s event", ev.Type)
	}
	return nil
}

func (s *RedisStore) FinishRun(ctx context.Context, id string, status workflow.RunStatus, result json.RawMessage, errMsg string, at time.Time) error {
	if err := s.exists(ctx, id); err != nil {
		return err
	}
	key := s.runKey(id)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"status", string(status),
			"result", string(result),
			"error", errMsg,
			"finished_at", at.UTC().Format(time.RFC3339Nano),
		)
		s.expire(ctx, pipe, key, s.eventsKey(id))
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "redis finish run")
	}
	return nil
}

func (s *RedisStore) GetRun(ctx context.Context, id string) (workflow.RunRecord, error) {
	fields, err := s.client.HGetAll(ctx, s.runKey(id)).Result()
	if err != nil {
		return workflow.RunRecord{}, errors.Wrap(err, "redis get run")
	}
	if len(fields) == 0 {
		return workflow.RunRecord{}, workflow.ErrRunNotFound
	}
	rec := workflow.RunRecord{
		ID:       fields["id"],
		Workflow: fields["workflow"],
		Status:   workflow.RunStatus(fields["status"]),
		Error:    fields["error"],
	}
	if r := fields["result"]; r != "" {
		rec.Result = json.RawMessage(r)
	}
	if rec.CreatedAt, err = parseTime(fields["created_at"]); err != nil {
		return workflow.RunRecord{}, err
	}
	if rec.FinishedAt, err = parseTime(fields["finished_at"]); err != nil {
		return workflow.RunRecord{}, err
	}
	return rec, nil
}

func (s *RedisStore) ListEvents(ctx context.Context, id string) ([]workflow.Event, error) {
	if err := s.exists(ctx, id); err != nil {
		return nil, err
	}
	items, err := s.client.LRange(ctx, s.eventsKey(id), 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "redis list events")
	}
	out := make([]workflow.Event, 0, len(items))
	for i, item := range items {
		var ev workflow.Event
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			return nil, errors.Wrap(err, "unmarshal event "+strconv.Itoa(i))
		}
		out = append(out, ev)
	}
	return out, nil
}

func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, errors.Wrap(err, "parse time")
	}
	return t, nil
}

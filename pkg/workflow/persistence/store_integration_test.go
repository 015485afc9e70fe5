//go:build integration

package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/wfbench/pkg/workflow"
)

func exerciseStore(t *testing.T, store workflow.Store) {
	t.Helper()
	ctx := context.Background()
	id := "wrun_" + uuid.NewString()
	created := time.Now().UTC().Truncate(time.Microsecond)

	_, err := store.GetRun(ctx, id)
	require.ErrorIs(t, err, workflow.ErrRunNotFound)

	require.NoError(t, store.CreateRun(ctx, workflow.RunRecord{
		ID: id, Workflow: "chain", Status: workflow.StatusRunning, CreatedAt: created,
	}))
	for i := 1; i <= 3; i++ {
		require.NoError(t, store.AppendEvent(ctx, workflow.Event{
			RunID:    id,
			Sequence: int64(i),
			Type:     workflow.EventStepCompleted,
			Step:     "increment",
			Attempt:  1,
			Payload:  json.RawMessage(fmt.Sprintf("%d", i)),
			At:       created.Add(time.Duration(i) * time.Millisecond),
		}))
	}
	finished := created.Add(time.Second)
	require.NoError(t, store.FinishRun(ctx, id, workflow.StatusCompleted, json.RawMessage("3"), "", finished))

	rec, err := store.GetRun(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "chain", rec.Workflow)
	require.Equal(t, workflow.StatusCompleted, rec.Status)
	require.JSONEq(t, "3", string(rec.Result))
	require.True(t, rec.CreatedAt.Equal(created))
	require.True(t, rec.FinishedAt.Equal(finished))

	events, err := store.ListEvents(ctx, id)
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i, ev := range events {
		require.Equal(t, int64(i+1), ev.Sequence)
		require.Equal(t, workflow.EventStepCompleted, ev.Type)
	}

	require.ErrorIs(t, store.FinishRun(ctx, "wrun_missing", workflow.StatusFailed, nil, "x", finished), workflow.ErrRunNotFound)
}

func TestPostgresStore_Integration(t *testing.T) {
	dsn := os.Getenv("WORKFLOW_TEST_DSN")
	if dsn == "" {
		t.Skip("WORKFLOW_TEST_DSN is not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	prefix := "wf_it_" + uuid.NewString()[:8]
	store, err := NewPostgresStore(pool, "", prefix)
	require.NoError(t, err)
	require.NoError(t, store.EnsureSchema(ctx))
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), fmt.Sprintf("DROP TABLE IF EXISTS %s, %s", store.events.Sanitize(), store.runs.Sanitize()))
	})

	exerciseStore(t, store)
}

func TestRedisStore_Integration(t *testing.T) {
	url := os.Getenv("WORKFLOW_TEST_REDIS_URL")
	if url == "" {
		t.Skip("WORKFLOW_TEST_REDIS_URL is not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	defer client.Close()

	exerciseStore(t, NewRedisStore(client, "wfbench:it:"+uuid.NewString()[:8], time.Minute))
}

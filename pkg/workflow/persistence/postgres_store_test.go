package persistence

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPostgresStore_RejectsNilPool(t *testing.T) {
	t.Parallel()

	_, err := NewPostgresStore(nil, "public", "wf")
	require.Error(t, err)
}

func TestNewRedisStore_KeyLayout(t *testing.T) {
	t.Parallel()

	s := NewRedisStore(nil, "", 0)
	require.Equal(t, "wfbench:runs:wrun_1", s.runKey("wrun_1"))
	require.Equal(t, "wfbench:runs:wrun_1:events", s.eventsKey("wrun_1"))
}

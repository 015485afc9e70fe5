package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExitCode(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0, exitCode(nil))
	require.Equal(t, 1, exitCode(errors.New("boom")))
	require.Equal(t, exitThresholds, exitCode(withCode(exitThresholds, errThresholdsFailed)))
	require.Equal(t, exitThresholds, exitCode(fmt.Errorf("wrapped: %w", withCode(exitThresholds, errThresholdsFailed))))
	require.NoError(t, withCode(exitThresholds, nil))
	require.ErrorIs(t, withCode(exitThresholds, errThresholdsFailed), errThresholdsFailed)
}

package serrors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeOf(t *testing.T) {
	t.Parallel()

	base := NewError("WORKFLOW_SUBMISSION", "submission failed", "")
	wrapped := fmt.Errorf("%w: store down", base)

	require.Equal(t, "WORKFLOW_SUBMISSION", CodeOf(wrapped))
	require.ErrorIs(t, wrapped, base)
	require.Equal(t, "submission failed: store down", wrapped.Error())
	require.Empty(t, CodeOf(fmt.Errorf("plain")))
}

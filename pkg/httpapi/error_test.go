package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteInternalError(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	require.NoError(t, WriteInternalError(rr, "boom"))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	require.JSONEq(t, `{"error":"Internal server error","message":"boom"}`, rr.Body.String())
}

func TestWriteError_OmitsEmptyMeta(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	require.NoError(t, WriteError(rr, http.StatusNotFound, "NOT_FOUND", "route not found", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.JSONEq(t, `{"code":"NOT_FOUND","message":"route not found"}`, rr.Body.String())
}

func TestWriteJSON_NilWriter(t *testing.T) {
	t.Parallel()

	require.NoError(t, WriteJSON(nil, http.StatusOK, map[string]string{"a": "b"}))
}

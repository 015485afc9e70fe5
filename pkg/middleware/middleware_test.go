package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/wfbench/pkg/composables"
)

func bufferLogger() (*logrus.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	log := logrus.New()
	log.SetOutput(buf)
	log.SetLevel(logrus.InfoLevel)
	return log, buf
}

func TestWithLogger_AttachesRequestLogger(t *testing.T) {
	log, buf := bufferLogger()
	r := mux.NewRouter()
	r.Use(WithLogger(log, DefaultLoggerOptions()))
	r.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		id, ok := composables.UseRequestID(r.Context())
		require.True(t, ok)
		require.Equal(t, "req-42", id)
		composables.UseLogger(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, "req-42", rr.Header().Get("X-Request-Id"))
	out := buf.String()
	require.Contains(t, out, "request started")
	require.Contains(t, out, "inside handler")
	require.Contains(t, out, "request completed")
}

func TestWithLogger_RecoversPanics(t *testing.T) {
	log, buf := bufferLogger()
	r := mux.NewRouter()
	r.Use(WithLogger(log, DefaultLoggerOptions()))
	r.HandleFunc("/boom", func(http.ResponseWriter, *http.Request) { panic("kaboom") })

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/boom", nil))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.JSONEq(t, `{"error":"Internal server error","message":"kaboom"}`, rr.Body.String())
	require.Contains(t, buf.String(), "panic recovered in request handler")
}

func TestRateLimit_RejectsOverLimit(t *testing.T) {
	r := mux.NewRouter()
	r.Use(RateLimit(RateLimitConfig{RequestsPerPeriod: 2}))
	r.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, rr.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestCors_AllowsConfiguredOrigin(t *testing.T) {
	h := Cors("http://localhost:3000")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

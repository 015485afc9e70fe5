package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/wfbench/modules/benchmark"
	"github.com/iota-uz/wfbench/pkg/application"
	"github.com/iota-uz/wfbench/pkg/configuration"
	"github.com/iota-uz/wfbench/pkg/eventbus"
	"github.com/iota-uz/wfbench/pkg/logging"
	"github.com/iota-uz/wfbench/pkg/workflow"
)

func newTestServer(t *testing.T, conf *configuration.Configuration) http.Handler {
	t.Helper()
	logger := logging.ConsoleLogger(logrus.PanicLevel)

	engine, err := workflow.NewEngine(workflow.Options{Workers: 4})
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close(context.Background()) })

	app := application.New(&application.ApplicationOptions{
		Logger:   logger,
		EventBus: eventbus.NewEventPublisher(logger),
	})
	require.NoError(t, application.LoadModules(app, benchmark.NewModule(engine, configuration.BenchmarkOptions{
		ChainSteps:  3,
		FanOutWidth: 4,
	}, logger)))

	srv, err := Default(&DefaultOptions{Logger: logger, Configuration: conf, Application: app})
	require.NoError(t, err)
	return srv.Handler()
}

func baseConfig() *configuration.Configuration {
	return &configuration.Configuration{
		CorsAllowedOrigins: []string{"http://localhost:3000"},
		RequestIDHeader:    "X-Request-ID",
		RealIPHeader:       "X-Real-IP",
		RateLimit:          configuration.RateLimitOptions{Storage: "memory"},
	}
}

func TestDefault_ServesBenchmarkWithRequestID(t *testing.T) {
	h := newTestServer(t, baseConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/benchmark?type=fanout", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "req-1", rr.Header().Get("X-Request-Id"))
	require.Contains(t, rr.Body.String(), `"result":4`)
}

func TestDefault_UnknownRouteGoesThroughMiddleware(t *testing.T) {
	h := newTestServer(t, baseConfig())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))

	require.Equal(t, http.StatusNotFound, rr.Code)
	require.NotEmpty(t, rr.Header().Get("X-Request-Id"))
	require.Contains(t, rr.Body.String(), "NOT_FOUND")
}

func TestDefault_RateLimitEnabled(t *testing.T) {
	conf := baseConfig()
	conf.RateLimit.Enabled = true
	conf.RateLimit.GlobalRPS = 1
	h := newTestServer(t, conf)

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
		codes = append(codes, rr.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

package loadgen

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/wfbench/pkg/logging"
)

func benchmarkServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/api/benchmark", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func shortScenario() Scenario {
	return Scenario{Name: "short", Executor: ConstantVUs, VUs: 2, Duration: 100 * time.Millisecond, GracefulStop: time.Second}
}

func newRunner(url string) *Runner {
	return &Runner{
		Config: Config{
			BaseURL:        url,
			WorkflowType:   "fanout",
			RequestTimeout: 5 * time.Second,
			Pause:          5 * time.Millisecond,
		},
		Scenario: shortScenario(),
		Logger:   logging.ConsoleLogger(logrus.FatalLevel),
	}
}

func TestRunner_HealthyBackendPasses(t *testing.T) {
	t.Parallel()

	srv := benchmarkServer(t, http.StatusOK, `{"runId":"wrun_1","result":100,"workflow":"benchmarkFanOut"}`)
	summary, err := newRunner(srv.URL).Run(context.Background())
	require.NoError(t, err)

	require.True(t, summary.Passed)
	require.NotEmpty(t, summary.RunID)
	require.Equal(t, "fanout", summary.Workflow)
	require.Equal(t, "short", summary.Scenario)
	require.Len(t, summary.Thresholds, 6)
	reqs := summary.Metrics[MetricHTTPReqs]
	require.Positive(t, reqs.Values["count"])
	require.InDelta(t, 1, summary.Metrics[MetricWorkflowSuccess].Values["rate"], 0)
}

func TestRunner_FailingBackendFailsThresholds(t *testing.T) {
	t.Parallel()

	srv := benchmarkServer(t, http.StatusInternalServerError, `{"error":"Internal server error","message":"boom"}`)
	summary, err := newRunner(srv.URL).Run(context.Background())
	require.NoError(t, err)

	require.False(t, summary.Passed)
	require.Zero(t, summary.Metrics[MetricWorkflowDuration].Samples)
	require.InDelta(t, 1, summary.Metrics[MetricHTTPReqFailed].Values["rate"], 0)
}

func TestRunner_HealthCheckGate(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	_, err := newRunner(srv.URL).Run(context.Background())
	require.ErrorContains(t, err, "health check failed")
}

func TestRunner_InterruptedRunStillAggregates(t *testing.T) {
	t.Parallel()

	srv := benchmarkServer(t, http.StatusOK, `{"runId":"wrun_1","result":100,"workflow":"benchmarkFanOut"}`)
	runner := newRunner(srv.URL)
	runner.Scenario.Duration = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(300*time.Millisecond, cancel)

	summary, err := runner.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, summary)
	require.True(t, summary.Interrupted)
	require.Less(t, summary.Duration, 30.0)
	require.Positive(t, summary.Metrics[MetricHTTPReqs].Values["count"])
	require.Len(t, summary.Thresholds, 6)
}

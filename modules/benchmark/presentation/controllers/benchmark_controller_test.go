package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/wfbench/modules/benchmark/domain/workload"
	"github.com/iota-uz/wfbench/modules/benchmark/services"
	"github.com/iota-uz/wfbench/pkg/application"
	"github.com/iota-uz/wfbench/pkg/workflow"
)

type resolvedRun struct {
	id    string
	value any
	err   error
}

func (r resolvedRun) ID() string { return r.id }

func (r resolvedRun) Await(context.Context) (any, error) { return r.value, r.err }

// sizeBackend resolves every run immediately with the size of the requested workload.
type sizeBackend struct {
	mu       sync.Mutex
	started  []string
	startErr error
	runErr   error
}

func (b *sizeBackend) Start(_ context.Context, def workflow.Definition) (services.RunHandle, error) {
	b.mu.Lock()
	b.started = append(b.started, def.Name)
	b.mu.Unlock()
	if b.startErr != nil {
		return nil, b.startErr
	}
	value := workload.ChainSteps
	if def.Name == workload.FanOutWorkflowName {
		value = workload.FanOutWidth
	}
	return resolvedRun{id: "wrun_test", value: value, err: b.runErr}, nil
}

func newRouter(t *testing.T, backend services.Backend) *mux.Router {
	t.Helper()
	return newAppRouter(t, application.New(&application.ApplicationOptions{}), backend)
}

func newAppRouter(t *testing.T, app application.Application, backend services.Backend) *mux.Router {
	t.Helper()
	app.RegisterServices(services.NewBenchmarkService(backend, nil, services.BenchmarkServiceOptions{
		Sizes: workload.DefaultSizes,
	}))
	r := mux.NewRouter()
	NewBenchmarkController(app).Register(r)
	return r
}

func post(t *testing.T, r http.Handler, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, target, nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return rr, body
}

func TestBenchmarkController_Trigger(t *testing.T) {
	cases := []struct {
		target   string
		workflow string
		result   float64
	}{
		{"/api/benchmark?type=chain", workload.ChainWorkflowName, 50},
		{"/api/benchmark?type=fanout", workload.FanOutWorkflowName, 100},
		{"/api/benchmark", workload.ChainWorkflowName, 50},
		{"/api/benchmark?type=random", workload.ChainWorkflowName, 50},
		{"/api/benchmark?type=%20fanout%20", workload.ChainWorkflowName, 50},
	}
	for _, tc := range cases {
		t.Run(tc.target, func(t *testing.T) {
			backend := &sizeBackend{}
			rr, body := post(t, newRouter(t, backend), tc.target)

			require.Equal(t, http.StatusOK, rr.Code)
			require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			require.Equal(t, "wrun_test", body["runId"])
			require.Equal(t, tc.workflow, body["workflow"])
			require.InDelta(t, tc.result, body["result"], 0)
			require.Equal(t, []string{tc.workflow}, backend.started)
		})
	}
}

func TestBenchmarkController_SubmissionFailure(t *testing.T) {
	backend := &sizeBackend{startErr: errors.New("store unavailable")}
	rr, body := post(t, newRouter(t, backend), "/api/benchmark?type=chain")

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, map[string]any{"error": "Internal server error", "message": "store unavailable"}, body)
	require.Len(t, backend.started, 1)
}

func TestBenchmarkController_ExecutionFailure(t *testing.T) {
	backend := &sizeBackend{runErr: errors.New("step ping failed after 3 attempt(s): boom")}
	rr, body := post(t, newRouter(t, backend), "/api/benchmark?type=fanout")

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, "Internal server error", body["error"])
	require.Equal(t, "step ping failed after 3 attempt(s): boom", body["message"])
}

func TestBenchmarkController_RejectsOtherMethods(t *testing.T) {
	r := newRouter(t, &sizeBackend{})
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/benchmark", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestBenchmarkController_Health(t *testing.T) {
	r := newRouter(t, &sizeBackend{})
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestBenchmarkController_HealthReportsUnreachableRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 200 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })
	app := application.New(&application.ApplicationOptions{Redis: client})

	r := newAppRouter(t, app, &sizeBackend{})
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "unavailable", body["status"])
	require.Contains(t, body["error"], "redis:")
}

func TestBenchmarkController_RecordsRequestMetrics(t *testing.T) {
	r := newRouter(t, &sizeBackend{startErr: errors.New("down")})
	post(t, r, "/api/benchmark?type=fanout")
	post(t, newRouter(t, &sizeBackend{}), "/api/benchmark?type=chain")

	mfs, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, mf := range mfs {
		if mf.GetName() != "benchmark_api_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := labelsToMap(m)
			if m.GetCounter().GetValue() >= 1 {
				seen[labels["workflow"]+"/"+labels["result"]] = true
			}
		}
	}
	require.True(t, seen[workload.FanOutWorkflowName+"/error"], "failed fan-out not counted")
	require.True(t, seen[workload.ChainWorkflowName+"/success"], "successful chain not counted")
}

func labelsToMap(m *dto.Metric) map[string]string {
	out := map[string]string{}
	for _, lp := range m.GetLabel() {
		out[lp.GetName()] = lp.GetValue()
	}
	return out
}

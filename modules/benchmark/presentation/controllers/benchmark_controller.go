package controllers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/iota-uz/wfbench/modules/benchmark/domain/workload"
	"github.com/iota-uz/wfbench/modules/benchmark/services"
	"github.com/iota-uz/wfbench/pkg/application"
	"github.com/iota-uz/wfbench/pkg/composables"
	"github.com/iota-uz/wfbench/pkg/httpapi"
)

const healthTimeout = 2 * time.Second

type benchmarkResponse struct {
	RunID    string `json:"runId"`
	Result   any    `json:"result"`
	Workflow string `json:"workflow"`
}

type BenchmarkController struct {
	app       application.Application
	benchmark *services.BenchmarkService
	basePath  string
}

func NewBenchmarkController(app application.Application) application.Controller {
	return &BenchmarkController{
		app:       app,
		benchmark: app.Service(services.BenchmarkService{}).(*services.BenchmarkService),
		basePath:  "/api/benchmark",
	}
}

func (c *BenchmarkController) Key() string {
	return c.basePath
}

func (c *BenchmarkController) Register(r *mux.Router) {
	r.HandleFunc(c.basePath, observeTrigger(c.Trigger)).Methods(http.MethodPost)
	r.HandleFunc("/health", c.Health).Methods(http.MethodGet)
}

// Trigger runs one benchmark workflow to completion and returns its result.
func (c *BenchmarkController) Trigger(w http.ResponseWriter, r *http.Request) {
	kind := workload.ParseKind(r.URL.Query().Get("type"))

	out, err := c.benchmark.Trigger(r.Context(), kind)
	if err != nil {
		composables.UseLogger(r.Context()).
			WithError(err).
			WithField("workflow", kind.WorkflowName()).
			Error("Benchmark error")
		_ = httpapi.WriteInternalError(w, services.Message(err))
		return
	}

	_ = httpapi.WriteJSON(w, http.StatusOK, benchmarkResponse{
		RunID:    out.RunID,
		Result:   out.Result,
		Workflow: out.Workflow,
	})
}

// Health reports 200 when the run store the app was built with answers a ping. Without a
// Postgres pool or Redis client there is nothing to check.
func (c *BenchmarkController) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := c.pingStores(ctx); err != nil {
		composables.UseLogger(r.Context()).WithError(err).Error("Health check failed")
		_ = httpapi.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (c *BenchmarkController) pingStores(ctx context.Context) error {
	if pool := c.app.DB(); pool != nil {
		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	if client := c.app.Redis(); client != nil {
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

package loadgen

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iota-uz/wfbench/pkg/benchstats"
)

// Runner executes one scenario against the trigger endpoint and aggregates the result.
type Runner struct {
	Config     Config
	Scenario   Scenario
	Thresholds []benchstats.Threshold
	Client     *http.Client
	Logger     *logrus.Logger
	// SkipHealthCheck disables the pre-flight GET /health.
	SkipHealthCheck bool
}

// Run drives the scenario to completion, then reduces the recorded samples into a summary.
// Threshold failures are reported through Summary.Passed, not as an error. When ctx is
// cancelled mid-run the samples recorded so far are still aggregated: the summary comes
// back marked Interrupted together with ctx.Err().
func (r *Runner) Run(ctx context.Context) (*benchstats.Summary, error) {
	if err := r.Config.Validate(); err != nil {
		return nil, err
	}
	if err := r.Scenario.Validate(); err != nil {
		return nil, err
	}
	client := r.Client
	if client == nil {
		client = NewHTTPClient(r.Config.RequestTimeout, r.Scenario.MaxVUs())
	}
	thresholds := r.Thresholds
	if thresholds == nil {
		thresholds = benchstats.DefaultThresholds()
	}
	log := r.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	if !r.SkipHealthCheck {
		if err := SmokeCheck(ctx, client, r.Config.HealthURL()); err != nil {
			return nil, err
		}
	}

	runID := uuid.NewString()
	reg := benchstats.NewRegistry()
	probe := NewProbe(client, r.Config.TriggerURL(), reg, log)

	log.WithFields(logrus.Fields{
		"run_id":   runID,
		"scenario": r.Scenario.Name,
		"executor": r.Scenario.Executor,
		"workflow": r.Config.WorkflowType,
		"target":   r.Config.TriggerURL(),
		"duration": r.Scenario.TotalDuration(),
		"max_vus":  r.Scenario.MaxVUs(),
	}).Info("starting benchmark")

	exec := &Executor{
		Scenario: r.Scenario,
		Pause:    r.Config.Pause,
		Iterate: func(ctx context.Context, vu int) {
			probe.Iterate(ctx, vu)
		},
		OnScale: func(active int) {
			log.WithField("vus", active).Debug("virtual users scaled")
		},
	}

	startedAt := time.Now().UTC()
	done := make(chan struct{})
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(done)
		return exec.Run(gctx)
	})
	if r.Config.Progress > 0 {
		g.Go(func() error {
			reportProgress(done, reg, startedAt, r.Config.Progress, log)
			return nil
		})
	}
	runErr := g.Wait()
	if runErr != nil && ctx.Err() == nil {
		return nil, runErr
	}
	finishedAt := time.Now().UTC()

	summary := benchstats.Aggregate(reg.Snapshot(), finishedAt.Sub(startedAt), thresholds)
	summary.RunID = runID
	summary.Scenario = r.Scenario.Name
	summary.Workflow = r.Config.WorkflowType
	summary.BaseURL = r.Config.BaseURL
	summary.StartedAt = startedAt
	summary.FinishedAt = finishedAt
	if runErr != nil {
		summary.Interrupted = true
		log.WithField("run_id", runID).Warn("benchmark interrupted, reporting recorded samples")
		return summary, runErr
	}
	return summary, nil
}

func reportProgress(done <-chan struct{}, reg *benchstats.Registry, startedAt time.Time, every time.Duration, log *logrus.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			s := benchstats.Aggregate(reg.Snapshot(), now.Sub(startedAt), nil)
			fields := logrus.Fields{"elapsed": now.Sub(startedAt).Round(time.Second)}
			if m, ok := s.Metrics[MetricHTTPReqs]; ok {
				fields["reqs"] = m.Values["count"]
				fields["req_rate"] = m.Values["rate"]
			}
			if m, ok := s.Metrics[MetricWorkflowDuration]; ok && m.Samples > 0 {
				fields["p95_ms"] = m.Values["p(95)"]
			}
			if m, ok := s.Metrics[MetricWorkflowSuccess]; ok && m.Samples > 0 {
				fields["success"] = m.Values["rate"]
			}
			log.WithFields(fields).Info("progress")
		}
	}
}

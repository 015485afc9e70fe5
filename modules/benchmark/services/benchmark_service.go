package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iota-uz/wfbench/modules/benchmark/domain/workload"
	"github.com/iota-uz/wfbench/pkg/eventbus"
)

var tracer = otel.Tracer("github.com/iota-uz/wfbench/modules/benchmark")

// Outcome is the resolved result of one triggered run.
type Outcome struct {
	RunID    string
	Result   any
	Workflow string
	Duration time.Duration
}

type BenchmarkServiceOptions struct {
	// Sizes is used as given; a zero size runs an empty workload.
	Sizes workload.Sizes
	// AwaitTimeout bounds the wait for a run's result. Zero waits until the run resolves
	// or the caller's context ends.
	AwaitTimeout time.Duration
	Logger       *logrus.Logger
}

type BenchmarkService struct {
	backend   Backend
	publisher eventbus.EventBus
	opts      BenchmarkServiceOptions
}

func NewBenchmarkService(backend Backend, publisher eventbus.EventBus, opts BenchmarkServiceOptions) *BenchmarkService {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &BenchmarkService{
		backend:   backend,
		publisher: publisher,
		opts:      opts,
	}
}

// Trigger submits one run of kind and waits for it to resolve. It never retries.
// Every call publishes a *workload.TriggeredEvent.
func (s *BenchmarkService) Trigger(ctx context.Context, kind workload.Kind) (out *Outcome, err error) {
	name := kind.WorkflowName()
	start := time.Now()
	var runID string
	defer func() {
		ev := &workload.TriggeredEvent{RunID: runID, Workflow: name, Duration: time.Since(start), Err: err}
		if out != nil {
			ev.Result = out.Result
			ev.Duration = out.Duration
		}
		s.publish(ev)
	}()
	ctx, span := tracer.Start(ctx, "benchmark.trigger", trace.WithAttributes(attribute.String("workflow", name)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = panicError(r)
		}
	}()

	run, err := s.backend.Start(ctx, s.opts.Sizes.Definition(kind))
	if err != nil {
		return nil, pkgerrors.WithMessage(err, "start "+name)
	}
	runID = run.ID()
	span.SetAttributes(attribute.String("run_id", runID))

	awaitCtx := ctx
	if s.opts.AwaitTimeout > 0 {
		var cancel context.CancelFunc
		awaitCtx, cancel = context.WithTimeout(ctx, s.opts.AwaitTimeout)
		defer cancel()
	}
	value, err := run.Await(awaitCtx)
	if err != nil {
		return nil, pkgerrors.WithMessagef(err, "await %s run %s", name, run.ID())
	}

	if verr := s.opts.Sizes.ValidateResult(kind, value); verr != nil {
		s.opts.Logger.WithField("run_id", run.ID()).WithError(verr).Warn("benchmark run returned an unexpected result")
	}
	return &Outcome{
		RunID:    run.ID(),
		Result:   value,
		Workflow: name,
		Duration: time.Since(start),
	}, nil
}

func (s *BenchmarkService) publish(ev *workload.TriggeredEvent) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ev)
}

// Message is the text reported to clients for a Trigger failure.
func Message(err error) string {
	return pkgerrors.Cause(err).Error()
}

func panicError(r any) error {
	if e, ok := r.(error); ok {
		return errors.New(e.Error())
	}
	return errors.New(fmt.Sprint(r))
}

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/wfbench/modules/benchmark/domain/workload"
	"github.com/iota-uz/wfbench/pkg/eventbus"
	"github.com/iota-uz/wfbench/pkg/logging"
	"github.com/iota-uz/wfbench/pkg/workflow"
)

type fakeRun struct {
	id    string
	value any
	err   error
	block bool
}

func (r *fakeRun) ID() string { return r.id }

func (r *fakeRun) Await(ctx context.Context) (any, error) {
	if r.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return r.value, r.err
}

type fakeBackend struct {
	started []string
	run     *fakeRun
	err     error
	panic   any
}

func (b *fakeBackend) Start(_ context.Context, def workflow.Definition) (RunHandle, error) {
	if b.panic != nil {
		panic(b.panic)
	}
	b.started = append(b.started, def.Name)
	if b.err != nil {
		return nil, b.err
	}
	return b.run, nil
}

func newService(b Backend, timeout time.Duration) *BenchmarkService {
	return NewBenchmarkService(b, nil, BenchmarkServiceOptions{
		Sizes:        workload.DefaultSizes,
		AwaitTimeout: timeout,
		Logger:       logging.ConsoleLogger(logrus.ErrorLevel),
	})
}

func TestBenchmarkService_Trigger_StartsOnceAndAwaits(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{run: &fakeRun{id: "wrun_1", value: 100}}
	out, err := newService(b, 0).Trigger(context.Background(), workload.KindFanOut)
	require.NoError(t, err)
	require.Equal(t, []string{workload.FanOutWorkflowName}, b.started)
	require.Equal(t, "wrun_1", out.RunID)
	require.Equal(t, 100, out.Result)
	require.Equal(t, workload.FanOutWorkflowName, out.Workflow)
}

func TestBenchmarkService_Trigger_SubmissionFailure(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{err: errors.New("engine is closed")}
	_, err := newService(b, 0).Trigger(context.Background(), workload.KindChain)
	require.Error(t, err)
	require.Equal(t, "engine is closed", Message(err))
	require.Len(t, b.started, 1)
}

func TestBenchmarkService_Trigger_ExecutionFailure(t *testing.T) {
	t.Parallel()

	cause := errors.New("step increment failed after 3 attempt(s): boom")
	b := &fakeBackend{run: &fakeRun{id: "wrun_2", err: cause}}
	_, err := newService(b, 0).Trigger(context.Background(), workload.KindChain)
	require.ErrorIs(t, err, cause)
	require.Equal(t, cause.Error(), Message(err))
}

func TestBenchmarkService_Trigger_RecoversPanic(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{panic: "backend exploded"}
	out, err := newService(b, 0).Trigger(context.Background(), workload.KindChain)
	require.Nil(t, out)
	require.EqualError(t, err, "backend exploded")
}

func TestBenchmarkService_Trigger_AwaitTimeout(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{run: &fakeRun{id: "wrun_3", block: true}}
	_, err := newService(b, 10*time.Millisecond).Trigger(context.Background(), workload.KindChain)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBenchmarkService_Trigger_WithEngine(t *testing.T) {
	engine, err := workflow.NewEngine(workflow.Options{Workers: 4})
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close(context.Background()) })

	svc := NewBenchmarkService(NewEngineBackend(engine), nil, BenchmarkServiceOptions{
		Sizes: workload.Sizes{ChainSteps: 5, FanOutWidth: 7},
	})
	out, err := svc.Trigger(context.Background(), workload.KindChain)
	require.NoError(t, err)
	require.Equal(t, 5, out.Result)
	require.NotEmpty(t, out.RunID)

	out, err = svc.Trigger(context.Background(), workload.KindFanOut)
	require.NoError(t, err)
	require.Equal(t, 7, out.Result)
}

func TestBenchmarkService_Trigger_ZeroSizesRunEmptyWorkloads(t *testing.T) {
	engine, err := workflow.NewEngine(workflow.Options{Workers: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close(context.Background()) })

	svc := NewBenchmarkService(NewEngineBackend(engine), nil, BenchmarkServiceOptions{})
	out, err := svc.Trigger(context.Background(), workload.KindChain)
	require.NoError(t, err)
	require.Equal(t, 0, out.Result)

	out, err = svc.Trigger(context.Background(), workload.KindFanOut)
	require.NoError(t, err)
	require.Equal(t, 0, out.Result)
}

func TestBenchmarkService_Trigger_PublishesEvent(t *testing.T) {
	t.Parallel()

	bus := eventbus.NewEventPublisher(logging.ConsoleLogger(logrus.ErrorLevel))
	var events []*workload.TriggeredEvent
	bus.Subscribe(func(ev *workload.TriggeredEvent) { events = append(events, ev) })

	ok := &fakeBackend{run: &fakeRun{id: "wrun_ok", value: 50}}
	svc := NewBenchmarkService(ok, bus, BenchmarkServiceOptions{Sizes: workload.DefaultSizes})
	out, err := svc.Trigger(context.Background(), workload.KindChain)
	require.NoError(t, err)

	failing := &fakeBackend{err: errors.New("engine is closed")}
	_, err = NewBenchmarkService(failing, bus, BenchmarkServiceOptions{}).Trigger(context.Background(), workload.KindFanOut)
	require.Error(t, err)

	require.Len(t, events, 2)
	require.Equal(t, "wrun_ok", events[0].RunID)
	require.Equal(t, workload.ChainWorkflowName, events[0].Workflow)
	require.Equal(t, 50, events[0].Result)
	require.Equal(t, out.Duration, events[0].Duration)
	require.False(t, events[0].Failed())

	require.Empty(t, events[1].RunID)
	require.Equal(t, workload.FanOutWorkflowName, events[1].Workflow)
	require.True(t, events[1].Failed())
	require.Equal(t, "engine is closed", Message(events[1].Err))
}

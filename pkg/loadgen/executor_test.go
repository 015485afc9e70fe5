package loadgen

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type concurrencyMeter struct {
	current atomic.Int32
	peak    atomic.Int32
	total   atomic.Int32
}

func (m *concurrencyMeter) iterate(d time.Duration) IterationFunc {
	return func(ctx context.Context, _ int) {
		n := m.current.Add(1)
		for {
			p := m.peak.Load()
			if n <= p || m.peak.CompareAndSwap(p, n) {
				break
			}
		}
		select {
		case <-time.After(d):
			m.total.Add(1)
		case <-ctx.Done():
		}
		m.current.Add(-1)
	}
}

func TestExecutor_ConstantVUs(t *testing.T) {
	t.Parallel()

	m := &concurrencyMeter{}
	e := &Executor{
		Scenario: Scenario{Name: "c", Executor: ConstantVUs, VUs: 3, Duration: 150 * time.Millisecond, GracefulStop: time.Second},
		Iterate:  m.iterate(5 * time.Millisecond),
		Pause:    time.Millisecond,
	}
	require.NoError(t, e.Run(context.Background()))
	require.Equal(t, int32(3), m.peak.Load())
	require.Positive(t, m.total.Load())
	require.Zero(t, m.current.Load())
}

func TestExecutor_GracefulStopCancelsLongIterations(t *testing.T) {
	t.Parallel()

	var interrupted atomic.Int32
	e := &Executor{
		Scenario: Scenario{Name: "c", Executor: ConstantVUs, VUs: 2, Duration: 30 * time.Millisecond, GracefulStop: 30 * time.Millisecond},
		Iterate: func(ctx context.Context, _ int) {
			<-ctx.Done()
			interrupted.Add(1)
		},
	}

	start := time.Now()
	require.NoError(t, e.Run(context.Background()))
	require.Less(t, time.Since(start), 2*time.Second)
	require.Equal(t, int32(2), interrupted.Load())
}

func TestExecutor_RampingFollowsStages(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var scales []int
	m := &concurrencyMeter{}
	e := &Executor{
		Scenario: Scenario{
			Name:     "r",
			Executor: RampingVUs,
			StartVUs: 1,
			Stages: []Stage{
				{Duration: 100 * time.Millisecond, Target: 4},
				{Duration: 100 * time.Millisecond, Target: 0},
			},
			GracefulRampDown: time.Second,
			GracefulStop:     time.Second,
		},
		Iterate: m.iterate(2 * time.Millisecond),
		Tick:    5 * time.Millisecond,
		OnScale: func(n int) {
			mu.Lock()
			scales = append(scales, n)
			mu.Unlock()
		},
	}
	require.NoError(t, e.Run(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, scales)
	peak := 0
	for _, n := range scales {
		if n > peak {
			peak = n
		}
	}
	require.LessOrEqual(t, peak, 4)
	require.GreaterOrEqual(t, peak, 3)
	require.Equal(t, 0, scales[len(scales)-1])
	require.LessOrEqual(t, m.peak.Load(), int32(4))
}

func TestExecutor_ContextCancelAborts(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	e := &Executor{
		Scenario: ThroughputScenario(),
		Iterate: func(ctx context.Context, _ int) {
			<-ctx.Done()
		},
	}
	require.ErrorIs(t, e.Run(ctx), context.DeadlineExceeded)
}

package loadgen

import (
	"context"
	"sync"
	"time"
)

// IterationFunc runs one iteration for virtual user vu. It must return promptly once ctx
// is cancelled.
type IterationFunc func(ctx context.Context, vu int)

type vu struct {
	id     int
	stop   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

// halt lets the VU finish its current iteration and cancels it after grace.
func (v *vu) halt(grace time.Duration) {
	close(v.stop)
	time.AfterFunc(grace, v.cancel)
}

type vuPool struct {
	ctx     context.Context
	iterate IterationFunc
	pause   time.Duration

	mu     sync.Mutex
	wg     sync.WaitGroup
	active []*vu
	nextID int
}

func newVUPool(ctx context.Context, iterate IterationFunc, pause time.Duration) *vuPool {
	return &vuPool{ctx: ctx, iterate: iterate, pause: pause}
}

func (p *vuPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}

// scaleTo starts or halts VUs until n are active. Halted VUs get grace to finish.
func (p *vuPool) scaleTo(n int, grace time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.active) < n {
		p.nextID++
		ctx, cancel := context.WithCancel(p.ctx)
		v := &vu{id: p.nextID, stop: make(chan struct{}), ctx: ctx, cancel: cancel}
		p.active = append(p.active, v)
		p.wg.Add(1)
		go p.loop(v)
	}
	for len(p.active) > n {
		last := p.active[len(p.active)-1]
		p.active = p.active[:len(p.active)-1]
		last.halt(grace)
	}
}

// stopAll halts every VU with grace and waits for all of them, including ones halted
// earlier, to exit.
func (p *vuPool) stopAll(grace time.Duration) {
	p.scaleTo(0, grace)
	p.wg.Wait()
}

func (p *vuPool) loop(v *vu) {
	defer p.wg.Done()
	defer v.cancel()

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	for {
		select {
		case <-v.stop:
			return
		case <-v.ctx.Done():
			return
		default:
		}

		p.iterate(v.ctx, v.id)

		if p.pause <= 0 {
			continue
		}
		timer.Reset(p.pause)
		select {
		case <-v.stop:
			timer.Stop()
			return
		case <-v.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// Executor schedules virtual users for one scenario.
type Executor struct {
	Scenario Scenario
	Iterate  IterationFunc
	Pause    time.Duration
	// Tick is how often a ramping executor re-evaluates its target.
	Tick time.Duration
	// OnScale is called with the new number of active VUs whenever it changes.
	OnScale func(active int)
}

// Run blocks until the scenario and its graceful stop are over or ctx is cancelled. A
// cancelled ctx aborts in-flight iterations immediately.
func (e *Executor) Run(ctx context.Context) error {
	if err := e.Scenario.Validate(); err != nil {
		return err
	}
	pool := newVUPool(ctx, e.Iterate, e.Pause)
	switch e.Scenario.Executor {
	case ConstantVUs:
		return e.runConstant(ctx, pool)
	default:
		return e.runRamping(ctx, pool)
	}
}

func (e *Executor) scale(pool *vuPool, n int, grace time.Duration) {
	before := pool.size()
	pool.scaleTo(n, grace)
	if e.OnScale != nil && before != n {
		e.OnScale(n)
	}
}

func (e *Executor) runConstant(ctx context.Context, pool *vuPool) error {
	e.scale(pool, e.Scenario.VUs, 0)

	timer := time.NewTimer(e.Scenario.Duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		pool.stopAll(0)
		return ctx.Err()
	case <-timer.C:
	}
	e.finish(pool)
	return nil
}

func (e *Executor) runRamping(ctx context.Context, pool *vuPool) error {
	tick := e.Tick
	if tick <= 0 {
		tick = 100 * time.Millisecond
	}
	total := e.Scenario.TotalDuration()
	start := time.Now()
	e.scale(pool, e.Scenario.TargetAt(0), e.Scenario.GracefulRampDown)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			pool.stopAll(0)
			return ctx.Err()
		case now := <-ticker.C:
			elapsed := now.Sub(start)
			if elapsed >= total {
				e.finish(pool)
				return nil
			}
			e.scale(pool, e.Scenario.TargetAt(elapsed), e.Scenario.GracefulRampDown)
		}
	}
}

func (e *Executor) finish(pool *vuPool) {
	if e.OnScale != nil && pool.size() != 0 {
		e.OnScale(0)
	}
	pool.stopAll(e.Scenario.GracefulStop)
}

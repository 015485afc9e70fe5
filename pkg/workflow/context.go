package workflow

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// StepFunc is a unit operation scheduled onto the engine's worker pool.
type StepFunc func(ctx context.Context) (any, error)

// Func is the body of a workflow. It orchestrates steps through the Context and returns
// the run's result.
type Func func(wc *Context) (any, error)

// Definition is a named workflow.
type Definition struct {
	Name string
	Fn   Func
}

// Context is handed to a workflow function for the lifetime of one run.
type Context struct {
	ctx    context.Context
	run    *Run
	engine *Engine
	seq    atomic.Int64
}

func (c *Context) Context() context.Context {
	return c.ctx
}

func (c *Context) RunID() string {
	return c.run.id
}

// Go schedules fn as a step and returns immediately with its future.
func (c *Context) Go(name string, fn StepFunc) *Future {
	f := newFuture()
	c.engine.enqueue(c.ctx, &stepTask{
		ctx:    c.ctx,
		runID:  c.run.id,
		name:   name,
		seq:    c.seq.Add(1),
		fn:     fn,
		future: f,
	})
	return f
}

// Step schedules fn and waits for its result.
func (c *Context) Step(name string, fn StepFunc) (any, error) {
	return c.Go(name, fn).Get(c.ctx)
}

// StepAs is Step with a typed result.
func StepAs[T any](wc *Context, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	v, err := wc.Step(name, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("step %s returned %T, expected %T", name, v, zero)
	}
	return out, nil
}

// Future is the pending result of a scheduled step.
type Future struct {
	once  sync.Once
	done  chan struct{}
	value any
	err   error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) Get(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *Future) resolve(value any, err error) {
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
	})
}

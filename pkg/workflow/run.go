package workflow

import (
	"context"
	"sync"
	"time"
)

// Run is the caller's handle on one submitted workflow. It resolves exactly once.
type Run struct {
	id        string
	workflow  string
	startedAt time.Time

	once       sync.Once
	done       chan struct{}
	value      any
	err        error
	finishedAt time.Time
}

func newRun(id, workflow string, startedAt time.Time) *Run {
	return &Run{
		id:        id,
		workflow:  workflow,
		startedAt: startedAt,
		done:      make(chan struct{}),
	}
}

func (r *Run) ID() string {
	return r.id
}

func (r *Run) Workflow() string {
	return r.workflow
}

func (r *Run) StartedAt() time.Time {
	return r.startedAt
}

// Done is closed once the run has resolved.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Await suspends until the run resolves or ctx is done. The wait is a single receive on the
// completion channel; nothing re-checks status on an interval.
func (r *Run) Await(ctx context.Context) (any, error) {
	select {
	case <-r.done:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Run) Status() RunStatus {
	select {
	case <-r.done:
		if r.err != nil {
			return StatusFailed
		}
		return StatusCompleted
	default:
		return StatusRunning
	}
}

// Duration is the elapsed time between submission and resolution, or until now if unresolved.
func (r *Run) Duration() time.Duration {
	select {
	case <-r.done:
		return r.finishedAt.Sub(r.startedAt)
	default:
		return time.Since(r.startedAt)
	}
}

func (r *Run) resolve(value any, err error, at time.Time) bool {
	resolved := false
	r.once.Do(func() {
		r.value = value
		r.err = err
		r.finishedAt = at
		resolved = true
		close(r.done)
	})
	return resolved
}

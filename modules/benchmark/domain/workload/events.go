package workload

import "time"

// TriggeredEvent is published once per trigger request, after the run resolved or the
// trigger gave up on it. RunID is empty when the run was never submitted.
type TriggeredEvent struct {
	RunID    string
	Workflow string
	Result   any
	Duration time.Duration
	Err      error
}

func (e *TriggeredEvent) Failed() bool {
	return e.Err != nil
}

package workflow

import "time"

// RunCompleted is published on the engine's event bus when a run resolves successfully.
type RunCompleted struct {
	RunID    string
	Workflow string
	Duration time.Duration
}

// RunFailed is published on the engine's event bus when a run resolves with an error.
type RunFailed struct {
	RunID    string
	Workflow string
	Duration time.Duration
	Err      error
}

package workflow

import (
	"context"
	"encoding/json"
	"time"
)

type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

type EventType string

const (
	EventRunStarted    EventType = "run_started"
	EventStepCompleted EventType = "step_completed"
	EventStepRetrying  EventType = "step_retrying"
	EventStepFailed    EventType = "step_failed"
	EventRunCompleted  EventType = "run_completed"
	EventRunFailed     EventType = "run_failed"
)

// RunRecord is the persisted state of a run.
type RunRecord struct {
	ID         string
	Workflow   string
	Status     RunStatus
	Result     json.RawMessage
	Error      string
	CreatedAt  time.Time
	FinishedAt time.Time
}

// Event is one entry of a run's append-only history. Sequence is the step sequence
// within the run (0 for run-level events).
type Event struct {
	RunID    string
	Sequence int64
	Type     EventType
	Step     string
	Attempt  int
	Payload  json.RawMessage
	Error    string
	At       time.Time
}

// Store persists runs and their event history.
type Store interface {
	CreateRun(ctx context.Context, rec RunRecord) error
	AppendEvent(ctx context.Context, ev Event) error
	FinishRun(ctx context.Context, id string, status RunStatus, result json.RawMessage, errMsg string, at time.Time) error
	GetRun(ctx context.Context, id string) (RunRecord, error)
	ListEvents(ctx context.Context, id string) ([]Event, error)
}

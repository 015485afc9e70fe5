package workflow

import (
	"fmt"

	"github.com/iota-uz/wfbench/pkg/serrors"
)

var (
	ErrSubmission   = serrors.NewError("WORKFLOW_SUBMISSION_FAILED", "workflow submission failed", "")
	ErrExecution    = serrors.NewError("WORKFLOW_EXECUTION_FAILED", "workflow execution failed", "")
	ErrEngineClosed = serrors.NewError("WORKFLOW_ENGINE_CLOSED", "workflow engine is closed", "")
	ErrRunNotFound  = serrors.NewError("WORKFLOW_RUN_NOT_FOUND", "workflow run not found", "")
	ErrInvalidDef   = serrors.NewError("WORKFLOW_INVALID_DEFINITION", "invalid workflow definition", "")
	ErrInvalidConf  = serrors.NewError("WORKFLOW_INVALID_CONFIG", "invalid workflow engine configuration", "")
)

func invalidConfig(msg string, args ...any) error {
	return fmt.Errorf("%w: "+msg, append([]any{ErrInvalidConf}, args...)...)
}

// RunError classifies a failure observed by a caller of Start or Await. Its message is the
// underlying failure's message so diagnostics survive the trip to API clients.
type RunError struct {
	Kind  *serrors.BaseError
	RunID string
	Err   error
}

func (e *RunError) Error() string {
	return e.Err.Error()
}

func (e *RunError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func submissionError(runID string, err error) error {
	return &RunError{Kind: ErrSubmission, RunID: runID, Err: err}
}

func executionError(runID string, err error) error {
	return &RunError{Kind: ErrExecution, RunID: runID, Err: err}
}

// StepError is returned by a Future whose step exhausted its attempts.
type StepError struct {
	Step     string
	Attempts int
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed after %d attempt(s): %v", e.Step, e.Attempts, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// PanicError carries a value recovered from a panicking workflow or step function.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	if err, ok := e.Value.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(e.Value)
}

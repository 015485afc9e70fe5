package main

import "errors"

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string {
	return e.err.Error()
}

func (e *cliError) Unwrap() error {
	return e.err
}

const (
	exitOK = 0
	// exitThresholds is the code k6 uses for failed thresholds.
	exitThresholds = 99
	// exitInterrupted is the code k6 uses for an externally aborted run.
	exitInterrupted = 105
)

var errThresholdsFailed = errors.New("some thresholds have failed")

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: code, err: err}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	return 1
}

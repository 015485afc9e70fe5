// Package serrors provides coded sentinel errors that can be matched with errors.Is
// and surfaced to API clients by their stable code.
package serrors

import "errors"

type Base interface {
	error
	Code() string
}

type BaseError struct {
	code    string
	message string
	hint    string
}

func NewError(code, message, hint string) *BaseError {
	return &BaseError{code: code, message: message, hint: hint}
}

func (e *BaseError) Error() string {
	return e.message
}

func (e *BaseError) Code() string {
	return e.code
}

func (e *BaseError) Hint() string {
	return e.hint
}

// CodeOf returns the code of the first coded error in err's chain, or "" if none.
func CodeOf(err error) string {
	var b Base
	if errors.As(err, &b) {
		return b.Code()
	}
	return ""
}

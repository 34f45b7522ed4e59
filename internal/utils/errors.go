// Package utils holds the shared plumbing the engine packages lean on:
// operation-tagged error wrapping, logger construction, and meter timestamp
// parsing.
package utils

import "fmt"

// AppError tags a failure with the operation that raised it, e.g.
// "ingest.csv" or "api.feedback". Handlers log the Op chain; clients see the
// message.
type AppError struct {
	Op  string
	Msg string
	Err error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}

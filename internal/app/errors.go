// Package app wires configuration, logging, and the script regex builder
// into the scriptmatch commands.
package app

import (
	"errors"
	"fmt"
)

// Application errors.
var (
	// ErrUsage indicates a command was invoked with the wrong arguments.
	ErrUsage = errors.New("usage error")

	// ErrUnknownCommand indicates an unrecognised command name.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrNoMatch indicates at least one script identifier did not match.
	ErrNoMatch = errors.New("script identifier did not match")

	// ErrInvalidLogLevel indicates an unrecognised log level name.
	ErrInvalidLogLevel = errors.New("invalid log level")
)

// OperationError records which command failed and on what input.
type OperationError struct {
	Op     string // Command name (e.g., "regex", "match")
	Target string // Path or URL the command was given
	Err    error  // Underlying error
}

// NewOperationError creates a new OperationError.
func NewOperationError(op, target string, err error) *OperationError {
	return &OperationError{
		Op:     op,
		Target: target,
		Err:    err,
	}
}

func (e *OperationError) Error() string {
	if e == nil {
		return ""
	}

	msg := e.Op
	if e.Target != "" {
		msg = fmt.Sprintf("%s %s", e.Op, e.Target)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// usageError reports a malformed command line.
func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUsage, fmt.Sprintf(format, args...))
}

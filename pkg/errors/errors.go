// Package errors defines the error taxonomy of a clustering run and maps each
// failure class to a process exit code.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrInputUnavailable  = errors.New("input unavailable")
	ErrMalformedRecord   = errors.New("malformed input record")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrNotConverged      = errors.New("clustering did not converge")
	ErrSinkFailed        = errors.New("writing results failed")
	ErrInternal          = errors.New("internal error")
)

// Exit codes returned by the command line tools.
const (
	ExitOK           = 0
	ExitInternal     = 1
	ExitConfig       = 2
	ExitInput        = 3
	ExitNotConverged = 4
	ExitSink         = 5
)

type AppError struct {
	Err      error
	Message  string
	ExitCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, message string) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  message,
		ExitCode: exitCodeFor(sentinel),
	}
}

func Newf(sentinel error, format string, args ...any) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  fmt.Sprintf(format, args...),
		ExitCode: exitCodeFor(sentinel),
	}
}

// Is reports whether any error in err's chain matches target. It is a
// convenience so callers need not import both error packages.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// ExitCode returns the process exit code for err. A nil error maps to ExitOK.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.ExitCode != 0 {
		return appErr.ExitCode
	}
	return exitCodeFor(err)
}

func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidConfig):
		return ExitConfig
	case errors.Is(err, ErrInputUnavailable), errors.Is(err, ErrMalformedRecord), errors.Is(err, ErrDimensionMismatch):
		return ExitInput
	case errors.Is(err, ErrNotConverged):
		return ExitNotConverged
	case errors.Is(err, ErrSinkFailed):
		return ExitSink
	default:
		return ExitInternal
	}
}

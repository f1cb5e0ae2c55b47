package dispatch

import (
	"context"
	"errors"
)

// serverNotFoundError signals a request naming a server absent from the
// configuration, for 404 mapping.
type serverNotFoundError struct{ name string }

func (e serverNotFoundError) Error() string { return "server not found: " + e.name }

// IsNotFound reports whether err indicates an unknown server name.
func IsNotFound(err error) bool {
	_, ok := err.(serverNotFoundError)
	return ok
}

// unavailableError signals a model hosted by no qualifying online server.
// Such requests fail fast rather than queuing forever.
type unavailableError struct {
	model  string
	server string
}

func (e unavailableError) Error() string {
	if e.server != "" {
		return "model " + e.model + " not available on server " + e.server
	}
	return "model " + e.model + " not available on any server"
}

// IsUnavailable reports whether err indicates a model with no qualifying
// server.
func IsUnavailable(err error) bool {
	_, ok := err.(unavailableError)
	return ok
}

// executionError wraps a backend call failure (timeout, connection error,
// non-success status).
type executionError struct {
	server string
	cause  error
}

func (e executionError) Error() string { return "execution on " + e.server + " failed: " + e.cause.Error() }
func (e executionError) Unwrap() error { return e.cause }

// IsExecutionFailure reports whether err indicates a failed backend call.
func IsExecutionFailure(err error) bool {
	var ee executionError
	return errors.As(err, &ee)
}

// IsExecutionTimeout reports whether err indicates a backend call that
// exceeded its deadline.
func IsExecutionTimeout(err error) bool {
	return IsExecutionFailure(err) && errors.Is(err, context.DeadlineExceeded)
}

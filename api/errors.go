// File: api/errors.go
// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error values shared across the library.

package api

import "fmt"

var (
	// ErrBadArg is the failure a driver signals for an unrecognized
	// control or call command. It propagates to the calling process as a
	// synchronous failure; it never terminates the port.
	ErrBadArg = fmt.Errorf("bad argument")

	// ErrIO is the class of output failures. The adapter does not retry;
	// the task decides whether to close the port.
	ErrIO = fmt.Errorf("i/o error")

	// ErrPortClosed is returned for operations on a port whose task has
	// stopped.
	ErrPortClosed = fmt.Errorf("port is closed")

	// ErrRunnerClosed is returned by Submit after the job runner shut down.
	ErrRunnerClosed = fmt.Errorf("job runner is closed")

	// ErrNotRegistered is returned when clearing interest on a channel the
	// multiplexer does not know, or selecting without a multiplexer bound.
	ErrNotRegistered = fmt.Errorf("channel is not registered")

	// ErrInvalidArgument flags a malformed argument to a runtime primitive.
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

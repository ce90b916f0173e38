// File: api/driver.go
// Package api defines the driver callback contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import (
	"github.com/momentics/portdrv/iodata"
)

// Driver is the mandatory callback set every port driver implements. The
// owning task invokes these strictly sequentially for a given port; no two
// callbacks of the same port ever run concurrently.
type Driver interface {
	// Output delivers one contiguous chunk of data from the runtime to the
	// driver. An I/O failure is reported through the returned error; the
	// task surfaces it as a port error event.
	Output(buf []byte) error

	// ReadyInput fires when a channel this driver selected for reading
	// becomes readable.
	ReadyInput(ch Channel)

	// ReadyOutput fires when a channel this driver selected for writing
	// becomes writable.
	ReadyOutput(ch Channel)

	// ReadyAsync fires exactly once per submitted async job, after the job
	// has finished on a runner worker.
	ReadyAsync(job AsyncJob)

	// Timeout fires when the port's single timer expires.
	Timeout()

	// Flush runs before Stop when the output queue is non-empty at close
	// time. The driver must drive pending output to completion or discard
	// it before returning.
	Flush()

	// ProcessExit fires when a process monitored by this port terminates.
	ProcessExit(monitor Ref)
}

// VectorOutputter is implemented by drivers that handle fragmented output
// natively (scatter-gather writes). Absent this capability, the task
// flattens the fragments and delivers them through Output.
type VectorOutputter interface {
	OutputV(vec []*iodata.Fragment) error
}

// Controller is implemented by drivers that answer synchronous
// ioctl-style control requests. Absent this capability, every command
// fails with ErrBadArg.
type Controller interface {
	Control(caller PID, command int, buf []byte) ([]byte, error)
}

// Caller is implemented by drivers that answer synchronous structured
// calls. Absent this capability, every command fails with ErrBadArg.
type Caller interface {
	Call(caller PID, command int, data iodata.Term) (iodata.Term, error)
}

// ConnectReadier is implemented by drivers interested in connect
// readiness; the default is a no-op.
type ConnectReadier interface {
	ReadyConnect(ch Channel)
}

// AcceptReadier is implemented by drivers interested in accept readiness;
// the default is a no-op.
type AcceptReadier interface {
	ReadyAccept(ch Channel)
}

// Stopper is implemented by drivers needing a final teardown hook. Stop
// runs after Flush; the driver is never invoked again afterwards.
type Stopper interface {
	Stop()
}

// SelectStopper is implemented by drivers that requested a release
// notification via OpUse on SelectClear. StopSelect fires once the runtime
// has fully dropped the channel registration and it is safe to close the
// underlying handle.
type SelectStopper interface {
	StopSelect(ch Channel)
}

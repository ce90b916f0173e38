// File: api/task.go
// Package api defines the task-side services consumed by the adapter.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import (
	"time"

	"github.com/momentics/portdrv/iodata"
)

// TaskControl is the slice of the owning task visible to a driver
// instance: output delivery, the single-slot timer, async submission and
// the binary-output policy flag.
type TaskControl interface {
	// OutputFromDriver hands a built output value to the task's sink for
	// delivery to the port owner's mailbox.
	OutputFromDriver(value iodata.Term)

	// SetTimer arms the port's single timer. A live timer is implicitly
	// cancelled; deadlines never accumulate.
	SetTimer(delay time.Duration)

	// CancelTimer disarms the timer if armed.
	CancelTimer()

	// RunAsync submits job for off-thread execution. Completion invokes
	// the driver's ReadyAsync exactly once, on the task's sequencing.
	RunAsync(job AsyncJob) error

	// SendBinaryData reports the port's binary-output policy: whether
	// non-empty output bodies are delivered as binaries or as text.
	SendBinaryData() bool
}

// EventOwner receives channel readiness and release notifications from
// the multiplexer. Implemented by the task, which forwards them into its
// sequential mailbox.
type EventOwner interface {
	// EventReady reports that ops became ready on ch.
	EventReady(ch Channel, ops InterestOp)

	// EventReleased reports that a registration cleared with the OpUse
	// modifier has been fully dropped and ch may be closed.
	EventReleased(ch Channel)
}

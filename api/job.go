// File: api/job.go
// Package api defines async job and identity types.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "github.com/google/uuid"

// AsyncJob is a unit of blocking work executed off the port's task, on a
// runner worker. Completion is reported back to the submitting driver via
// ReadyAsync, exactly once, sequenced by the owning task. The runner makes
// no ordering promise across jobs; drivers needing ordering must encode
// sequence numbers in the job payload.
type AsyncJob interface {
	Run()
}

// JobRunner executes async jobs on worker goroutines.
type JobRunner interface {
	// Submit hands job to a worker. The owner receives AsyncDone exactly
	// once after the job finishes, including when the job panics.
	Submit(job AsyncJob, owner AsyncOwner) error
}

// AsyncOwner receives job completions. Implemented by the task, which
// forwards them into its sequential mailbox.
type AsyncOwner interface {
	AsyncDone(job AsyncJob)
}

// PID identifies the process issuing a control or call request.
type PID uint64

// Ref identifies a monitor established by a port.
type Ref struct {
	id uuid.UUID
}

// NewRef returns a fresh, unique monitor reference.
func NewRef() Ref { return Ref{id: uuid.New()} }

func (r Ref) String() string { return r.id.String() }

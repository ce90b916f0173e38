// File: driver/instance.go
// Package driver: the adapter between a concrete driver and the runtime.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package driver

import (
	"fmt"
	"sync"
	"time"

	"github.com/momentics/portdrv/api"
	"github.com/momentics/portdrv/iodata"
)

// Instance is the per-port adapter. It owns the output queue and the
// lazily-created port data lock, and routes the driver_* primitives to the
// owning task, the multiplexer and the job runner. One Instance exists per
// open port, created when the port opens and discarded after Stop.
//
// All methods except PDL assume the owning task's sequencing and need no
// internal locking.
type Instance struct {
	task  api.TaskControl
	mux   api.Multiplexer
	owner api.EventOwner

	pdlMu sync.Mutex
	pdl   sync.Locker

	q OutQueue
}

// NewInstance binds an adapter to its owning task. mux may be nil for
// ports that never select on a channel.
func NewInstance(task api.TaskControl, mux api.Multiplexer, owner api.EventOwner) *Instance {
	return &Instance{task: task, mux: mux, owner: owner}
}

// Bindable is implemented by drivers that want the adapter handed to them
// at open time; the task calls BindPort once, before the first callback.
// A driver embedding *Instance typically assigns the embedded field here.
type Bindable interface {
	BindPort(in *Instance)
}

// Select registers (SelectSet) or deregisters (SelectClear) interest in
// ops on ch. Bits outside the four recognized event types are discarded.
// On SelectClear the OpUse modifier requests a StopSelect notification
// once the registration is fully dropped.
func (in *Instance) Select(ch api.Channel, mode api.InterestOp, onOff api.SelectMode) error {
	if in.mux == nil {
		return fmt.Errorf("select: %w", api.ErrNotRegistered)
	}

	ops := mode & api.AllOps
	switch onOff {
	case api.SelectSet:
		return in.mux.SetInterest(ch, ops, in.owner)
	case api.SelectClear:
		releaseNotify := mode&api.OpUse != 0
		return in.mux.ClearInterest(ch, ops, releaseNotify, in.owner)
	}
	return fmt.Errorf("select: mode %d: %w", onOff, api.ErrInvalidArgument)
}

// Async submits job for off-thread execution. ReadyAsync fires exactly
// once on completion, sequenced by the owning task.
func (in *Instance) Async(job api.AsyncJob) error {
	return in.task.RunAsync(job)
}

// Output2 emits header plus body to the port owner's mailbox. The tail is
// the empty-sequence value for an empty body, a binary when the task's
// binary-output policy is set, and text otherwise. Header bytes are always
// the verbatim prefix.
func (in *Instance) Output2(header, body []byte) {
	var tail iodata.Term
	switch {
	case len(body) == 0:
		tail = iodata.Nil
	case in.task.SendBinaryData():
		tail = iodata.Binary(body)
	default:
		tail = iodata.Text(body)
	}

	in.task.OutputFromDriver(&iodata.BinList{Header: header, Tail: tail})
}

// OutputBinary emits bin as a binary-typed value, prefixed by header when
// header is non-empty.
func (in *Instance) OutputBinary(header, bin []byte) {
	var out iodata.Term = iodata.Binary(bin)
	if len(header) > 0 {
		out = &iodata.BinList{Header: header, Tail: out}
	}
	in.task.OutputFromDriver(out)
}

// SetTimer arms the port's single timer; a live deadline is replaced.
func (in *Instance) SetTimer(delay time.Duration) { in.task.SetTimer(delay) }

// CancelTimer disarms the timer.
func (in *Instance) CancelTimer() { in.task.CancelTimer() }

// PDL returns the port data lock, creating it on first use. Repeated
// calls return the same lock. The lock is for port-private state touched
// both from the owning task and from async job workers; drivers that never
// cross that boundary never pay for it.
func (in *Instance) PDL() sync.Locker {
	in.pdlMu.Lock()
	defer in.pdlMu.Unlock()
	if in.pdl == nil {
		in.pdl = &sync.Mutex{}
	}
	return in.pdl
}

// PeekQ returns the output queue contents without mutation.
func (in *Instance) PeekQ() []*iodata.Fragment { return in.q.Peek() }

// Deq drops fully-drained leading fragments from the output queue. See
// OutQueue.Deq for the exact contract.
func (in *Instance) Deq(size int64) { in.q.Deq(size) }

// EnqV replaces the output queue with the given fragment sequence.
func (in *Instance) EnqV(frags []*iodata.Fragment) { in.q.EnqV(frags) }

// QueueEmpty reports whether the output queue holds no unread bytes. The
// task consults this at close time to decide whether Flush must run.
func (in *Instance) QueueEmpty() bool { return in.q.Empty() }

// QueuePending returns the total unread byte count in the output queue.
func (in *Instance) QueuePending() int64 { return in.q.Pending() }

// Flatten concatenates a fragment sequence's unread windows into one
// contiguous buffer, preserving order and total content. Fragments are
// not advanced.
func Flatten(vec []*iodata.Fragment) []byte {
	total := 0
	for _, f := range vec {
		if f != nil {
			total += f.Remaining()
		}
	}
	out := make([]byte, 0, total)
	for _, f := range vec {
		if f != nil {
			out = append(out, f.Bytes()...)
		}
	}
	return out
}

// File: driver/queue.go
// Package driver: the buffered output queue of a port.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package driver

import "github.com/momentics/portdrv/iodata"

// OutQueue holds a port's pending output as an ordered sequence of
// partially-consumed fragments. The zero value is the never-enqueued
// state, in which Peek returns nil.
//
// The queue belongs to the owning task's sequencing: it is only touched
// from driver callbacks, so it carries no lock of its own.
type OutQueue struct {
	frags []*iodata.Fragment
}

// Peek returns the current queue contents without mutation. The returned
// slice is the live backing storage, nil tail slots left by Deq included.
func (q *OutQueue) Peek() []*iodata.Fragment { return q.frags }

// EnqV replaces the queue wholesale with the given fragment sequence.
func (q *OutQueue) EnqV(frags []*iodata.Fragment) { q.frags = frags }

// Deq removes fully-drained leading fragments. The byte count is accepted
// for interface compatibility but does not advance any fragment's cursor:
// cursors move only when the driver itself consumes bytes via
// iodata.Fragment.Advance. Leading fragments with zero unread bytes are
// dropped by shifting the remainder to the front in place and clearing the
// vacated tail slots; a queue whose every fragment is drained is left
// unchanged (the next EnqV replaces it wholesale).
func (q *OutQueue) Deq(size int64) {
	_ = size

	if q.frags == nil {
		return
	}

	p := 0
	for p < len(q.frags) && q.frags[p] != nil && q.frags[p].Remaining() == 0 {
		p++
	}

	if p == 0 || p == len(q.frags) {
		return
	}

	n := copy(q.frags, q.frags[p:])
	for i := n; i < len(q.frags); i++ {
		q.frags[i] = nil
	}
}

// Empty reports whether the queue holds no unread bytes.
func (q *OutQueue) Empty() bool {
	for _, f := range q.frags {
		if f != nil && f.Remaining() > 0 {
			return false
		}
	}
	return true
}

// Pending returns the total number of unread bytes across the queue.
func (q *OutQueue) Pending() int64 {
	var n int64
	for _, f := range q.frags {
		if f != nil {
			n += int64(f.Remaining())
		}
	}
	return n
}

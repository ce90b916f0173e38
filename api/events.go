// File: api/events.go
// Package api defines event interest flags shared with the multiplexer.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// InterestOp is a bit-set of readiness event types a driver can register
// interest in on a channel.
type InterestOp int

const (
	// OpRead requests notification when the channel is readable.
	OpRead InterestOp = 1 << iota
	// OpWrite requests notification when the channel is writable.
	OpWrite
	// OpAccept requests notification when an inbound connection is pending.
	OpAccept
	// OpConnect requests notification when an outbound connect completes.
	OpConnect
	// OpUse is not an event type: it is a modifier consumed on SelectClear
	// that requests a release notification (StopSelect) once the runtime has
	// fully dropped the channel's registration.
	OpUse
)

// AllOps masks the recognized event types. Unrecognized high bits supplied
// by a driver are discarded before reaching the multiplexer.
const AllOps = OpRead | OpWrite | OpAccept | OpConnect

// SelectMode selects between registering and deregistering interest.
type SelectMode int

const (
	// SelectSet registers the given interest bits.
	SelectSet SelectMode = iota
	// SelectClear deregisters the given interest bits.
	SelectClear
)

// Has reports whether all bits of q are set in m.
func (m InterestOp) Has(q InterestOp) bool { return m&q == q }

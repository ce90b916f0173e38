// File: api/mux.go
// Package api defines the multiplexer contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Multiplexer owns channel registrations across all ports and turns
// interest bits into readiness notifications delivered to each
// registration's owner. Its registration table is its own to protect.
type Multiplexer interface {
	// SetInterest registers ops on ch for owner, merging with any bits
	// already registered.
	SetInterest(ch Channel, ops InterestOp, owner EventOwner) error

	// ClearInterest removes ops from ch's registration. When the last bit
	// is removed the registration is dropped; if releaseNotify was
	// requested on this or an earlier clear, the owner then receives
	// EventReleased exactly once.
	ClearInterest(ch Channel, ops InterestOp, releaseNotify bool, owner EventOwner) error
}

// File: reactor/poller.go
// Package reactor: platform-neutral poller contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package reactor

import "github.com/momentics/portdrv/api"

// Poller is the OS-facing half of the multiplexer. Implementations exist
// per platform; tests inject fakes.
type Poller interface {
	// Add starts watching fd for the given interest bits.
	Add(fd uintptr, ops api.InterestOp) error

	// Modify replaces the watched interest bits for fd.
	Modify(fd uintptr, ops api.InterestOp) error

	// Remove stops watching fd.
	Remove(fd uintptr) error

	// Wait blocks up to timeoutMs (-1 blocks indefinitely) and fills
	// events with readiness notifications, returning the count written.
	Wait(events []PollEvent, timeoutMs int) (int, error)

	// Close releases the poller's OS resources.
	Close() error
}

// PollEvent is one readiness notification from the OS.
type PollEvent struct {
	Fd  uintptr
	Ops api.InterestOp // ready bits, before intersection with the registration
	Err bool           // error/hangup condition on the fd
}

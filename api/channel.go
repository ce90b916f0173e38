// File: api/channel.go
// Package api defines the Channel contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Channel is an OS-pollable endpoint a driver can register interest on.
// The adapter treats it as opaque; the multiplexer keys registrations by Fd.
type Channel interface {
	Fd() uintptr
}

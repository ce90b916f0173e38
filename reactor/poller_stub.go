//go:build !linux
// +build !linux

// File: reactor/poller_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub factory for platforms without a poller implementation.

package reactor

import "errors"

// newPlatformPoller reports the missing platform support. Tests and
// embedders on these platforms inject a Poller of their own.
func newPlatformPoller() (Poller, error) {
	return nil, errors.New("reactor: no poller for this platform")
}

// File: reactor/mux.go
// Package reactor: the registration table and dispatch loop.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package reactor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/momentics/portdrv/api"
)

// registration is one channel's entry in the table.
type registration struct {
	ch            api.Channel
	ops           api.InterestOp
	owner         api.EventOwner
	releaseNotify bool // sticky until the registration is fully dropped
}

// Mux is the shared multiplexer. The registration table is guarded by the
// mux's own mutex; owners are only ever invoked to post into their task
// mailboxes, so no lock ordering issue exists with port tasks.
type Mux struct {
	mu     sync.Mutex
	regs   map[uintptr]*registration
	poller Poller
	log    *slog.Logger
}

var _ api.Multiplexer = (*Mux)(nil)

// New builds a Mux over the given poller. Used directly by tests; most
// callers want NewDefault.
func New(p Poller, logger *slog.Logger) *Mux {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mux{
		regs:   make(map[uintptr]*registration),
		poller: p,
		log:    logger.With("component", "reactor"),
	}
}

// NewDefault builds a Mux over the platform poller.
func NewDefault(logger *slog.Logger) (*Mux, error) {
	p, err := newPlatformPoller()
	if err != nil {
		return nil, err
	}
	return New(p, logger), nil
}

// SetInterest merges ops into ch's registration, creating it on first use.
func (m *Mux) SetInterest(ch api.Channel, ops api.InterestOp, owner api.EventOwner) error {
	if ops == 0 {
		return nil
	}
	fd := ch.Fd()

	m.mu.Lock()
	defer m.mu.Unlock()

	reg, ok := m.regs[fd]
	if !ok {
		reg = &registration{ch: ch, ops: ops, owner: owner}
		if err := m.poller.Add(fd, ops); err != nil {
			return fmt.Errorf("set interest fd=%d: %w", fd, err)
		}
		m.regs[fd] = reg
		return nil
	}

	reg.ops |= ops
	reg.owner = owner
	if err := m.poller.Modify(fd, reg.ops); err != nil {
		return fmt.Errorf("set interest fd=%d: %w", fd, err)
	}
	return nil
}

// ClearInterest removes ops from ch's registration. Once the last bit is
// gone the fd leaves the poller; if release notification was requested on
// this or any earlier clear, the owner hears EventReleased exactly once,
// only after the drop.
func (m *Mux) ClearInterest(ch api.Channel, ops api.InterestOp, releaseNotify bool, owner api.EventOwner) error {
	fd := ch.Fd()

	m.mu.Lock()
	reg, ok := m.regs[fd]
	if !ok {
		m.mu.Unlock()
		// Nothing registered: the handle is already safe to release.
		if releaseNotify {
			owner.EventReleased(ch)
			return nil
		}
		return fmt.Errorf("clear interest fd=%d: %w", fd, api.ErrNotRegistered)
	}

	reg.releaseNotify = reg.releaseNotify || releaseNotify
	reg.ops &^= ops

	if reg.ops != 0 {
		err := m.poller.Modify(fd, reg.ops)
		m.mu.Unlock()
		if err != nil {
			return fmt.Errorf("clear interest fd=%d: %w", fd, err)
		}
		return nil
	}

	delete(m.regs, fd)
	notify := reg.releaseNotify
	notifyOwner := reg.owner
	err := m.poller.Remove(fd)
	m.mu.Unlock()

	if notify {
		notifyOwner.EventReleased(ch)
	}
	if err != nil {
		return fmt.Errorf("clear interest fd=%d: %w", fd, err)
	}
	return nil
}

// Run drives the dispatch loop until ctx is done: poller readiness is
// intersected with each registration and posted to its owner. Owners are
// mailboxes, so dispatch never blocks on a slow port.
func (m *Mux) Run(ctx context.Context) error {
	const batch = 128
	const waitMs = 200

	events := make([]PollEvent, batch)
	for {
		if ctx.Err() != nil {
			return nil
		}

		n, err := m.poller.Wait(events, waitMs)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reactor: %w", err)
		}

		for i := 0; i < n; i++ {
			m.deliver(events[i])
		}
	}
}

// deliver posts one poll event to the registered owner. The registration
// is snapshotted under the table lock; Set/ClearInterest mutate the same
// entry concurrently with this goroutine.
func (m *Mux) deliver(ev PollEvent) {
	m.mu.Lock()
	reg, ok := m.regs[ev.Fd]
	if !ok {
		m.mu.Unlock()
		return
	}
	ch := reg.ch
	owner := reg.owner
	ready := ev.Ops & reg.ops
	if ev.Err {
		// Wake every registered interest so the driver discovers the error
		// on its next channel operation.
		ready = reg.ops
	}
	m.mu.Unlock()

	if ready == 0 {
		return
	}
	owner.EventReady(ch, ready)
}

// Close releases the poller.
func (m *Mux) Close() error {
	return m.poller.Close()
}

// File: task/dispatch.go
// Package task: callback dispatch with capability fallbacks.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package task

import (
	"fmt"

	"github.com/momentics/portdrv/api"
	"github.com/momentics/portdrv/driver"
)

// dispatch runs one mailbox message through the driver. A true result
// stops the loop. Any panic escaping a callback is converted into a port
// termination; nothing is swallowed and nothing propagates past here.
func (t *Task) dispatch(m any) (stop bool) {
	defer func() {
		if r := recover(); r != nil {
			t.log.Error("driver callback panicked, terminating port", "panic", r)
			t.reason = fmt.Errorf("driver failure: %v", r)
			stop = true
		}
	}()

	switch m := m.(type) {
	case msgOutput:
		if err := t.drv.Output(m.buf); err != nil {
			return t.failPort(fmt.Errorf("output: %w", err))
		}

	case msgOutputV:
		var err error
		if vo, ok := t.drv.(api.VectorOutputter); ok {
			err = vo.OutputV(m.vec)
		} else {
			// Default behavior: flatten and delegate, preserving fragment
			// order and total byte content.
			err = t.drv.Output(driver.Flatten(m.vec))
		}
		if err != nil {
			return t.failPort(fmt.Errorf("outputv: %w", err))
		}

	case msgReady:
		t.dispatchReady(m.ch, m.ops)

	case msgReleased:
		if s, ok := t.drv.(api.SelectStopper); ok {
			s.StopSelect(m.ch)
		}

	case msgAsyncDone:
		t.drv.ReadyAsync(m.job)

	case msgTimeout:
		// A stale generation means the timer was rearmed or cancelled after
		// this expiry was posted.
		if t.timerLive(m.gen) {
			t.drv.Timeout()
		}

	case msgProcessExit:
		t.drv.ProcessExit(m.ref)

	case msgControl:
		rep, failure := t.runControl(m)
		m.reply <- rep
		if failure != nil {
			return t.callbackFailed(failure)
		}

	case msgCall:
		rep, failure := t.runCall(m)
		m.reply <- rep
		if failure != nil {
			return t.callbackFailed(failure)
		}

	case msgClose:
		t.closeDown()
		return true
	}

	return false
}

// dispatchReady fans one readiness notification out to the per-event
// callbacks. Connect and accept are optional capabilities.
func (t *Task) dispatchReady(ch api.Channel, ops api.InterestOp) {
	if ops.Has(api.OpRead) {
		t.drv.ReadyInput(ch)
	}
	if ops.Has(api.OpWrite) {
		t.drv.ReadyOutput(ch)
	}
	if ops.Has(api.OpConnect) {
		if c, ok := t.drv.(api.ConnectReadier); ok {
			c.ReadyConnect(ch)
		}
	}
	if ops.Has(api.OpAccept) {
		if a, ok := t.drv.(api.AcceptReadier); ok {
			a.ReadyAccept(ch)
		}
	}
}

// runControl answers one control request, falling back to the bad-arg
// failure for drivers without the capability. A panic in the callback is
// caught here rather than in dispatch, so the blocked caller always gets
// a reply before the port terminates.
func (t *Task) runControl(m msgControl) (rep ctrlReply, failure error) {
	defer func() {
		if r := recover(); r != nil {
			failure = fmt.Errorf("driver failure: %v", r)
			rep = ctrlReply{err: failure}
		}
	}()
	c, ok := t.drv.(api.Controller)
	if !ok {
		return ctrlReply{err: fmt.Errorf("control %d: %w", m.command, api.ErrBadArg)}, nil
	}
	buf, err := c.Control(m.caller, m.command, m.buf)
	return ctrlReply{buf: buf, err: err}, nil
}

// runCall answers one structured call, with the same fallback and panic
// policy as runControl.
func (t *Task) runCall(m msgCall) (rep callReply, failure error) {
	defer func() {
		if r := recover(); r != nil {
			failure = fmt.Errorf("driver failure: %v", r)
			rep = callReply{err: failure}
		}
	}()
	c, ok := t.drv.(api.Caller)
	if !ok {
		return callReply{err: fmt.Errorf("call %d: %w", m.command, api.ErrBadArg)}, nil
	}
	data, err := c.Call(m.caller, m.command, m.data)
	return callReply{data: data, err: err}, nil
}

// callbackFailed terminates the port after a panic escaped a synchronous
// request callback. The caller has already received its reply.
func (t *Task) callbackFailed(err error) bool {
	t.log.Error("driver callback panicked, terminating port", "err", err)
	t.reason = err
	return true
}

// failPort terminates the port after an I/O failure. The driver's Stop
// hook still runs; Flush is skipped since output just failed.
func (t *Task) failPort(err error) bool {
	t.log.Error("port i/o failure, closing", "err", err)
	t.reason = err
	t.stopDriver()
	return true
}

// closeDown runs the orderly close protocol: flush pending output, then
// the final teardown hook.
func (t *Task) closeDown() {
	if !t.inst.QueueEmpty() {
		t.drv.Flush()
	}
	t.stopDriver()
}

// stopDriver invokes the optional Stop hook. The driver must not be
// invoked again after this returns.
func (t *Task) stopDriver() {
	if s, ok := t.drv.(api.Stopper); ok {
		s.Stop()
	}
}

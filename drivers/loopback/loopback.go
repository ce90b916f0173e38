// File: drivers/loopback/loopback.go
// Package loopback implements the reference port driver: runtime output
// is buffered through the port's output queue and echoed back to the
// owning process. It exercises the whole adapter surface — queue, timer,
// async jobs, control — without touching an OS channel.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package loopback

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/momentics/portdrv/api"
	"github.com/momentics/portdrv/driver"
	"github.com/momentics/portdrv/iodata"
)

// Control commands understood by the driver. Anything else fails with the
// bad-argument condition.
const (
	// CmdPending answers with the queue's unread byte count, big-endian.
	CmdPending = 1
	// CmdEcho answers with the request buffer unchanged.
	CmdEcho = 2
)

// Driver is the loopback port driver.
type Driver struct {
	*driver.Instance

	header  []byte
	stopped bool
}

var (
	_ api.Driver      = (*Driver)(nil)
	_ api.Controller  = (*Driver)(nil)
	_ driver.Bindable = (*Driver)(nil)
)

// New returns a loopback driver that prefixes every emitted value with
// header.
func New(header []byte) *Driver {
	return &Driver{header: header}
}

// BindPort receives the adapter from the owning task.
func (d *Driver) BindPort(in *driver.Instance) { d.Instance = in }

// Output buffers the chunk on the output queue and drains it back to the
// process.
func (d *Driver) Output(buf []byte) error {
	live := make([]*iodata.Fragment, 0, len(d.PeekQ())+1)
	for _, f := range d.PeekQ() {
		if f != nil && f.Remaining() > 0 {
			live = append(live, f)
		}
	}
	data := make([]byte, len(buf))
	copy(data, buf)
	live = append(live, iodata.NewFragment(data))
	d.EnqV(live)

	d.drain()
	return nil
}

// drain echoes every unread fragment and compacts the queue.
func (d *Driver) drain() {
	for _, f := range d.PeekQ() {
		if f == nil || f.Remaining() == 0 {
			continue
		}
		chunk := f.Bytes()
		d.Output2(d.header, chunk)
		f.Advance(len(chunk))
	}
	d.Deq(0)
}

// ReadyInput is required by the contract; loopback has no channel.
func (d *Driver) ReadyInput(ch api.Channel) {}

// ReadyOutput is required by the contract; loopback has no channel.
func (d *Driver) ReadyOutput(ch api.Channel) {}

// reverseJob reverses its payload off-thread. The result crosses from
// the worker back to the task, so it sits behind the port data lock.
type reverseJob struct {
	lock    sync.Locker
	payload []byte
	result  []byte
}

func (j *reverseJob) Run() {
	out := make([]byte, len(j.payload))
	for i, b := range j.payload {
		out[len(out)-1-i] = b
	}
	j.lock.Lock()
	j.result = out
	j.lock.Unlock()
}

// EchoReversed submits an async job that echoes buf reversed once the
// job completes.
func (d *Driver) EchoReversed(buf []byte) error {
	data := make([]byte, len(buf))
	copy(data, buf)
	return d.Async(&reverseJob{lock: d.PDL(), payload: data})
}

// ReadyAsync emits the completed job's result.
func (d *Driver) ReadyAsync(job api.AsyncJob) {
	j, ok := job.(*reverseJob)
	if !ok {
		return
	}
	j.lock.Lock()
	out := j.result
	j.lock.Unlock()
	d.Output2(d.header, out)
}

// SetIdle arms the port timer; Timeout reports the expiry upstream.
func (d *Driver) SetIdle(delay time.Duration) { d.SetTimer(delay) }

// Timeout emits an idle marker.
func (d *Driver) Timeout() {
	d.Output2(d.header, []byte("idle"))
}

// Control answers the two recognized commands synchronously.
func (d *Driver) Control(caller api.PID, command int, buf []byte) ([]byte, error) {
	switch command {
	case CmdPending:
		out := make([]byte, 4)
		binary.BigEndian.PutUint32(out, uint32(d.QueuePending()))
		return out, nil
	case CmdEcho:
		out := make([]byte, len(buf))
		copy(out, buf)
		return out, nil
	default:
		return nil, fmt.Errorf("control %d: %w", command, api.ErrBadArg)
	}
}

// Flush drives the remaining queue contents out before the port stops.
func (d *Driver) Flush() {
	d.drain()
}

// Stop records teardown; the task never calls back in afterwards.
func (d *Driver) Stop() {
	d.stopped = true
}

// ProcessExit is required by the contract; loopback monitors nothing.
func (d *Driver) ProcessExit(monitor api.Ref) {}

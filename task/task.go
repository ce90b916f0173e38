// File: task/task.go
// Package task: per-port mailbox loop and runtime-facing operations.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package task

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/eapache/queue"

	"github.com/momentics/portdrv/api"
	"github.com/momentics/portdrv/driver"
	"github.com/momentics/portdrv/iodata"
)

// Sink receives the output values a driver emits toward the port owner's
// mailbox.
type Sink func(value iodata.Term)

// Config carries the immutable wiring of one port task.
type Config struct {
	Driver       api.Driver      // required
	Sink         Sink            // output destination; nil drops output
	Mux          api.Multiplexer // nil for ports that never select
	Runner       api.JobRunner   // nil for ports that never go async
	BinaryOutput bool            // send-binary-data policy for Output2 tails
	Logger       *slog.Logger    // nil falls back to slog.Default
}

// Task owns one port. All driver callbacks run on its single mailbox
// goroutine, strictly ordered; that sequencing is the invariant everything
// else leans on.
type Task struct {
	drv    api.Driver
	inst   *driver.Instance
	sink   Sink
	runner api.JobRunner
	binary bool
	log    *slog.Logger

	mu     sync.Mutex
	mbox   *queue.Queue
	closed bool
	wake   chan struct{}

	timerMu  sync.Mutex
	timer    *time.Timer
	timerGen uint64

	startOnce sync.Once
	done      chan struct{}
	reason    error
}

var (
	_ api.TaskControl = (*Task)(nil)
	_ api.EventOwner  = (*Task)(nil)
	_ api.AsyncOwner  = (*Task)(nil)
)

// New wires a task around drv without starting it. The adapter Instance is
// created here and handed to the driver via driver.Bindable before the
// first callback can run.
func New(cfg Config) (*Task, error) {
	if cfg.Driver == nil {
		return nil, fmt.Errorf("task: %w: nil driver", api.ErrInvalidArgument)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	t := &Task{
		drv:    cfg.Driver,
		sink:   cfg.Sink,
		runner: cfg.Runner,
		binary: cfg.BinaryOutput,
		log:    log.With("component", "port-task"),
		mbox:   queue.New(),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	t.inst = driver.NewInstance(t, cfg.Mux, t)
	if b, ok := cfg.Driver.(driver.Bindable); ok {
		b.BindPort(t.inst)
	}
	return t, nil
}

// Start launches the mailbox loop. Subsequent calls are no-ops.
func (t *Task) Start() {
	t.startOnce.Do(func() { go t.loop() })
}

// Instance exposes the port's adapter, mainly for tests and embedders
// that do not implement driver.Bindable.
func (t *Task) Instance() *driver.Instance { return t.inst }

// post appends m to the mailbox unless the task is closed.
func (t *Task) post(m any) bool {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return false
	}
	t.mbox.Add(m)
	t.mu.Unlock()

	select {
	case t.wake <- struct{}{}:
	default:
	}
	return true
}

// loop drains the mailbox strictly sequentially until a terminating
// message or a driver failure.
func (t *Task) loop() {
	defer t.finish()

	for {
		t.mu.Lock()
		for t.mbox.Length() == 0 {
			t.mu.Unlock()
			<-t.wake
			t.mu.Lock()
		}
		m := t.mbox.Remove()
		t.mu.Unlock()

		if stop := t.dispatch(m); stop {
			return
		}
	}
}

// finish closes the mailbox and answers any synchronous callers still
// queued, so no process blocks on a dead port.
func (t *Task) finish() {
	t.stopTimer()

	t.mu.Lock()
	t.closed = true
	for t.mbox.Length() > 0 {
		switch m := t.mbox.Remove().(type) {
		case msgControl:
			m.reply <- ctrlReply{err: api.ErrPortClosed}
		case msgCall:
			m.reply <- callReply{err: api.ErrPortClosed}
		}
	}
	t.mu.Unlock()

	close(t.done)
}

// Output delivers one contiguous chunk from the runtime to the driver.
func (t *Task) Output(buf []byte) error {
	if !t.post(msgOutput{buf: buf}) {
		return api.ErrPortClosed
	}
	return nil
}

// OutputV delivers fragmented data from the runtime to the driver.
func (t *Task) OutputV(vec []*iodata.Fragment) error {
	if !t.post(msgOutputV{vec: vec}) {
		return api.ErrPortClosed
	}
	return nil
}

// Control issues a synchronous ioctl-style request and blocks for the
// driver's response. Calling it from inside a driver callback deadlocks
// the port; it is for external processes only.
func (t *Task) Control(caller api.PID, command int, buf []byte) ([]byte, error) {
	reply := make(chan ctrlReply, 1)
	if !t.post(msgControl{caller: caller, command: command, buf: buf, reply: reply}) {
		return nil, api.ErrPortClosed
	}
	r := <-reply
	return r.buf, r.err
}

// Call issues a synchronous structured request and blocks for the
// driver's response. Same reentrancy restriction as Control.
func (t *Task) Call(caller api.PID, command int, data iodata.Term) (iodata.Term, error) {
	reply := make(chan callReply, 1)
	if !t.post(msgCall{caller: caller, command: command, data: data, reply: reply}) {
		return nil, api.ErrPortClosed
	}
	r := <-reply
	return r.data, r.err
}

// ProcessExit notifies the driver that a monitored process terminated.
func (t *Task) ProcessExit(ref api.Ref) error {
	if !t.post(msgProcessExit{ref: ref}) {
		return api.ErrPortClosed
	}
	return nil
}

// Close starts the port's close protocol: pending output is flushed, the
// driver's Stop hook runs, then the loop exits. Close does not wait; use
// Wait for completion.
func (t *Task) Close() error {
	if !t.post(msgClose{}) {
		return api.ErrPortClosed
	}
	return nil
}

// Wait blocks until the port has fully stopped and returns the exit
// reason: nil for an orderly close, the failure otherwise.
func (t *Task) Wait() error {
	<-t.done
	return t.reason
}

// OutputFromDriver hands a built output value to the sink. Runs on the
// task goroutine (drivers call it from callbacks).
func (t *Task) OutputFromDriver(value iodata.Term) {
	if t.sink != nil {
		t.sink(value)
	}
}

// SendBinaryData reports the port's binary-output policy.
func (t *Task) SendBinaryData() bool { return t.binary }

// SetTimer arms the single-slot timer; a live deadline is replaced, never
// accumulated. Expiry posts into the mailbox, so Timeout is sequenced like
// every other callback.
func (t *Task) SetTimer(delay time.Duration) {
	t.timerMu.Lock()
	defer t.timerMu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timerGen++
	gen := t.timerGen
	t.timer = time.AfterFunc(delay, func() {
		t.post(msgTimeout{gen: gen})
	})
}

// CancelTimer disarms the timer. A timeout already posted but not yet
// dispatched is invalidated by the generation bump.
func (t *Task) CancelTimer() {
	t.stopTimer()
}

func (t *Task) stopTimer() {
	t.timerMu.Lock()
	defer t.timerMu.Unlock()
	t.timerGen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// timerLive reports whether gen identifies the currently armed deadline.
func (t *Task) timerLive(gen uint64) bool {
	t.timerMu.Lock()
	defer t.timerMu.Unlock()
	return gen == t.timerGen
}

// RunAsync implements api.TaskControl by submitting to the job runner
// with this task as the completion owner.
func (t *Task) RunAsync(job api.AsyncJob) error {
	if t.runner == nil {
		return fmt.Errorf("run async: %w", api.ErrRunnerClosed)
	}
	return t.runner.Submit(job, t)
}

// AsyncDone implements api.AsyncOwner: completions are queued behind
// whatever the port is currently doing, never delivered reentrantly.
func (t *Task) AsyncDone(job api.AsyncJob) {
	t.post(msgAsyncDone{job: job})
}

// EventReady implements api.EventOwner.
func (t *Task) EventReady(ch api.Channel, ops api.InterestOp) {
	t.post(msgReady{ch: ch, ops: ops})
}

// EventReleased implements api.EventOwner.
func (t *Task) EventReleased(ch api.Channel) {
	t.post(msgReleased{ch: ch})
}

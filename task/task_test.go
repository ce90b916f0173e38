// File: task/task_test.go
// Task contract: strict callback sequencing, capability fallbacks, close
// protocol, timer slot, async delivery.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package task

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/portdrv/api"
	"github.com/momentics/portdrv/driver"
	"github.com/momentics/portdrv/iodata"
)

// recDriver records every callback. It implements only the mandatory
// contract; capability variants wrap it below.
type recDriver struct {
	in *driver.Instance

	mu      sync.Mutex
	events  []string
	outputs [][]byte

	outputErr error
	panicIn   string

	depth    int32
	maxDepth int32

	onOutput func(d *recDriver, buf []byte)
}

func (d *recDriver) BindPort(in *driver.Instance) { d.in = in }

func (d *recDriver) enter(ev string) func() {
	if atomic.AddInt32(&d.depth, 1) > atomic.LoadInt32(&d.maxDepth) {
		atomic.StoreInt32(&d.maxDepth, atomic.LoadInt32(&d.depth))
	}
	d.mu.Lock()
	d.events = append(d.events, ev)
	d.mu.Unlock()
	if d.panicIn == ev {
		atomic.AddInt32(&d.depth, -1)
		panic("driver bug in " + ev)
	}
	return func() { atomic.AddInt32(&d.depth, -1) }
}

func (d *recDriver) recorded() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.events))
	copy(out, d.events)
	return out
}

func (d *recDriver) Output(buf []byte) error {
	defer d.enter("output")()
	d.mu.Lock()
	cp := make([]byte, len(buf))
	copy(cp, buf)
	d.outputs = append(d.outputs, cp)
	d.mu.Unlock()
	if d.onOutput != nil {
		d.onOutput(d, buf)
	}
	return d.outputErr
}

func (d *recDriver) ReadyInput(ch api.Channel)    { defer d.enter("readyInput")() }
func (d *recDriver) ReadyOutput(ch api.Channel)   { defer d.enter("readyOutput")() }
func (d *recDriver) ReadyAsync(job api.AsyncJob)  { defer d.enter("readyAsync")() }
func (d *recDriver) Timeout()                     { defer d.enter("timeout")() }
func (d *recDriver) Flush()                       { defer d.enter("flush")() }
func (d *recDriver) ProcessExit(ref api.Ref)      { defer d.enter("processExit")() }
func (d *recDriver) Stop()                        { defer d.enter("stop")() }

// vecDriver adds the vector-output capability.
type vecDriver struct {
	*recDriver
	vecs [][]*iodata.Fragment
}

func (d *vecDriver) OutputV(vec []*iodata.Fragment) error {
	defer d.enter("outputv")()
	d.vecs = append(d.vecs, vec)
	return nil
}

// ctrlDriver adds the control capability.
type ctrlDriver struct {
	*recDriver
}

func (d *ctrlDriver) Control(caller api.PID, command int, buf []byte) ([]byte, error) {
	defer d.enter("control")()
	if command != 42 {
		return nil, fmt.Errorf("control %d: %w", command, api.ErrBadArg)
	}
	return append([]byte("ok:"), buf...), nil
}

// callDriver adds the structured-call capability.
type callDriver struct {
	*recDriver
}

func (d *callDriver) Call(caller api.PID, command int, data iodata.Term) (iodata.Term, error) {
	defer d.enter("call")()
	return data, nil
}

// inlineRunner completes jobs synchronously inside Submit, the worst case
// for reentrancy.
type inlineRunner struct{}

func (inlineRunner) Submit(job api.AsyncJob, owner api.AsyncOwner) error {
	job.Run()
	owner.AsyncDone(job)
	return nil
}

type noteJob struct{ ran atomic.Bool }

func (j *noteJob) Run() { j.ran.Store(true) }

func startTask(t *testing.T, drv api.Driver, cfg Config) *Task {
	t.Helper()
	cfg.Driver = drv
	tk, err := New(cfg)
	require.NoError(t, err)
	tk.Start()
	return tk
}

func TestTask_RequiresDriver(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestTask_OutputReachesDriver(t *testing.T) {
	d := &recDriver{}
	tk := startTask(t, d, Config{})

	require.NoError(t, tk.Output([]byte("abc")))
	require.NoError(t, tk.Close())
	require.NoError(t, tk.Wait())

	d.mu.Lock()
	defer d.mu.Unlock()
	require.Len(t, d.outputs, 1)
	assert.Equal(t, []byte("abc"), d.outputs[0])
}

// The default OutputV flattens and delegates to Output, byte-identically.
func TestTask_OutputVDefaultFlattens(t *testing.T) {
	d := &recDriver{}
	tk := startTask(t, d, Config{})

	vec := []*iodata.Fragment{
		iodata.NewFragment([]byte("ab")),
		iodata.NewFragment([]byte("cd")),
	}
	require.NoError(t, tk.OutputV(vec))

	// Empty sequence produces an empty-output call, not a dropped one.
	require.NoError(t, tk.OutputV(nil))

	require.NoError(t, tk.Close())
	require.NoError(t, tk.Wait())

	d.mu.Lock()
	defer d.mu.Unlock()
	require.Len(t, d.outputs, 2)
	assert.Equal(t, []byte("abcd"), d.outputs[0])
	assert.Empty(t, d.outputs[1])
}

func TestTask_OutputVCapabilityWins(t *testing.T) {
	d := &vecDriver{recDriver: &recDriver{}}
	tk := startTask(t, d, Config{})

	vec := []*iodata.Fragment{iodata.NewFragment([]byte("xy"))}
	require.NoError(t, tk.OutputV(vec))
	require.NoError(t, tk.Close())
	require.NoError(t, tk.Wait())

	require.Len(t, d.vecs, 1)
	assert.Equal(t, vec, d.vecs[0])
	assert.Empty(t, d.outputs, "flatten fallback must not run")
}

func TestTask_ControlDefaultIsBadArg(t *testing.T) {
	tk := startTask(t, &recDriver{}, Config{})
	defer func() { tk.Close(); tk.Wait() }()

	_, err := tk.Control(1, 99, nil)
	assert.ErrorIs(t, err, api.ErrBadArg)

	_, err = tk.Call(1, 99, iodata.Nil)
	assert.ErrorIs(t, err, api.ErrBadArg)
}

func TestTask_ControlCapability(t *testing.T) {
	d := &ctrlDriver{recDriver: &recDriver{}}
	tk := startTask(t, d, Config{})
	defer func() { tk.Close(); tk.Wait() }()

	buf, err := tk.Control(1, 42, []byte("ping"))
	require.NoError(t, err)
	assert.Equal(t, []byte("ok:ping"), buf)

	_, err = tk.Control(1, 7, nil)
	assert.ErrorIs(t, err, api.ErrBadArg, "unrecognized command stays a synchronous failure")
}

// A panic inside a synchronous request still answers the blocked caller
// before the port terminates; no process hangs on a dead port.
func TestTask_ControlPanicAnswersCaller(t *testing.T) {
	d := &ctrlDriver{recDriver: &recDriver{panicIn: "control"}}
	tk := startTask(t, d, Config{})

	done := make(chan error, 1)
	go func() {
		_, err := tk.Control(1, 42, nil)
		done <- err
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "driver failure")
	case <-time.After(time.Second):
		t.Fatal("control caller still blocked after the driver panicked")
	}

	err := tk.Wait()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "driver failure")
}

func TestTask_CallPanicAnswersCaller(t *testing.T) {
	d := &callDriver{recDriver: &recDriver{panicIn: "call"}}
	tk := startTask(t, d, Config{})

	done := make(chan error, 1)
	go func() {
		_, err := tk.Call(1, 1, iodata.Nil)
		done <- err
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "driver failure")
	case <-time.After(time.Second):
		t.Fatal("call caller still blocked after the driver panicked")
	}

	require.Error(t, tk.Wait())
}

func TestTask_PanicTerminatesPort(t *testing.T) {
	d := &recDriver{panicIn: "output"}
	tk := startTask(t, d, Config{})

	require.NoError(t, tk.Output([]byte("boom")))

	err := tk.Wait()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "driver failure")

	// The port is gone; later operations fail cleanly.
	assert.ErrorIs(t, tk.Output(nil), api.ErrPortClosed)
	_, cerr := tk.Control(1, 1, nil)
	assert.ErrorIs(t, cerr, api.ErrPortClosed)
}

func TestTask_OutputErrorClosesPort(t *testing.T) {
	ioErr := fmt.Errorf("write: %w", api.ErrIO)
	d := &recDriver{outputErr: ioErr}
	tk := startTask(t, d, Config{})

	require.NoError(t, tk.Output([]byte("x")))

	err := tk.Wait()
	assert.ErrorIs(t, err, api.ErrIO)

	events := d.recorded()
	assert.Contains(t, events, "stop")
	assert.NotContains(t, events, "flush", "failed output must not be flushed again")
}

func TestTask_CloseFlushesNonEmptyQueue(t *testing.T) {
	d := &recDriver{
		onOutput: func(d *recDriver, buf []byte) {
			// Leave the bytes pending instead of writing them anywhere.
			d.in.EnqV([]*iodata.Fragment{iodata.NewFragment(buf)})
		},
	}
	tk := startTask(t, d, Config{})

	require.NoError(t, tk.Output([]byte("pending")))
	require.NoError(t, tk.Close())
	require.NoError(t, tk.Wait())

	assert.Equal(t, []string{"output", "flush", "stop"}, d.recorded())
}

func TestTask_CloseSkipsFlushWhenQueueEmpty(t *testing.T) {
	d := &recDriver{}
	tk := startTask(t, d, Config{})

	require.NoError(t, tk.Close())
	require.NoError(t, tk.Wait())

	assert.Equal(t, []string{"stop"}, d.recorded())
}

func TestTask_AsyncExactlyOnceAndNotReentrant(t *testing.T) {
	job := &noteJob{}
	d := &recDriver{}
	d.onOutput = func(rd *recDriver, buf []byte) {
		// Submit from inside a callback: completion must still be queued,
		// never delivered while output is on the stack.
		assert.NoError(t, rd.in.Async(job))
	}
	tk := startTask(t, d, Config{Runner: inlineRunner{}})

	require.NoError(t, tk.Output([]byte("go")))
	require.Eventually(t, func() bool {
		for _, ev := range d.recorded() {
			if ev == "readyAsync" {
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond)

	require.NoError(t, tk.Close())
	require.NoError(t, tk.Wait())

	assert.True(t, job.ran.Load())
	assert.Equal(t, []string{"output", "readyAsync", "stop"}, d.recorded())
	assert.EqualValues(t, 1, atomic.LoadInt32(&d.maxDepth), "callbacks must never nest")
}

func TestTask_RunAsyncWithoutRunner(t *testing.T) {
	tk := startTask(t, &recDriver{}, Config{})
	defer func() { tk.Close(); tk.Wait() }()

	err := tk.RunAsync(&noteJob{})
	assert.ErrorIs(t, err, api.ErrRunnerClosed)
}

func TestTask_TimerSingleSlot(t *testing.T) {
	d := &recDriver{}
	tk := startTask(t, d, Config{})

	// Rearming replaces the deadline: exactly one timeout fires.
	tk.SetTimer(50 * time.Millisecond)
	tk.SetTimer(10 * time.Millisecond)
	time.Sleep(80 * time.Millisecond)

	require.NoError(t, tk.Close())
	require.NoError(t, tk.Wait())
	assert.Equal(t, []string{"timeout", "stop"}, d.recorded())
}

func TestTask_CancelTimer(t *testing.T) {
	d := &recDriver{}
	tk := startTask(t, d, Config{})

	tk.SetTimer(10 * time.Millisecond)
	tk.CancelTimer()
	time.Sleep(40 * time.Millisecond)

	require.NoError(t, tk.Close())
	require.NoError(t, tk.Wait())
	assert.NotContains(t, d.recorded(), "timeout")
}

func TestTask_ReadinessFanOut(t *testing.T) {
	d := &recDriver{}
	tk := startTask(t, d, Config{})

	ch := chanFd(3)
	tk.EventReady(ch, api.OpRead|api.OpWrite)
	// Connect/accept without the capability fall back to no-ops.
	tk.EventReady(ch, api.OpConnect|api.OpAccept)
	tk.EventReleased(ch)

	require.NoError(t, tk.Close())
	require.NoError(t, tk.Wait())
	assert.Equal(t, []string{"readyInput", "readyOutput", "stop"}, d.recorded())
}

func TestTask_ProcessExit(t *testing.T) {
	d := &recDriver{}
	tk := startTask(t, d, Config{})

	require.NoError(t, tk.ProcessExit(api.NewRef()))
	require.NoError(t, tk.Close())
	require.NoError(t, tk.Wait())
	assert.Equal(t, []string{"processExit", "stop"}, d.recorded())
}

// Callbacks for one port never run concurrently, whatever the producers do.
func TestTask_StrictSequencing(t *testing.T) {
	d := &recDriver{
		onOutput: func(*recDriver, []byte) { time.Sleep(100 * time.Microsecond) },
	}
	tk := startTask(t, d, Config{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				tk.Output([]byte{byte(j)})
			}
		}()
	}
	wg.Wait()

	require.NoError(t, tk.Close())
	require.NoError(t, tk.Wait())
	assert.EqualValues(t, 1, atomic.LoadInt32(&d.maxDepth))
}

type chanFd uintptr

func (c chanFd) Fd() uintptr { return uintptr(c) }

func TestTask_OutputValuePathThroughSink(t *testing.T) {
	var got []iodata.Term
	d := &recDriver{
		onOutput: func(rd *recDriver, buf []byte) {
			rd.in.Output2([]byte{0x01, 0x02}, buf)
		},
	}
	tk := startTask(t, d, Config{
		Sink: func(v iodata.Term) { got = append(got, v) },
	})

	require.NoError(t, tk.Output([]byte("AB")))
	require.NoError(t, tk.Close())
	require.NoError(t, tk.Wait())

	require.Len(t, got, 1)
	l, ok := got[0].(*iodata.BinList)
	require.True(t, ok)
	assert.Equal(t, []byte{0x01, 0x02}, l.Header)
	assert.Equal(t, iodata.Text("AB"), l.Tail, "binary policy off yields a text tail")
	assert.Equal(t, []byte{0x01, 0x02, 'A', 'B'}, got[0].Flat())
}

// File: facade/facade.go
// Unified facade layer for the portdrv library.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// This file defines Open, which aggregates the runtime services a port
// needs — multiplexer, job runner, task — behind a single call, and the
// Port handle re-exporting the runtime-facing operations.

package facade

import (
	"context"
	"log/slog"

	"github.com/momentics/portdrv/api"
	"github.com/momentics/portdrv/iodata"
	"github.com/momentics/portdrv/reactor"
	"github.com/momentics/portdrv/runner"
	"github.com/momentics/portdrv/task"
)

// Port is one open port: the task plus whatever services Open created
// for it (as opposed to shared ones passed in via options).
type Port struct {
	task *task.Task

	ownedMux    *reactor.Mux
	muxCancel   context.CancelFunc
	ownedRunner *runner.Pool
}

// Open wires drv into a running port. Shared services can be supplied
// through options; anything missing is created and owned by the port.
// On platforms without a poller the port opens without a multiplexer and
// Select fails, which only matters to drivers that actually select.
func Open(drv api.Driver, sink task.Sink, opts ...Option) (*Port, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	p := &Port{}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	mux := cfg.Mux
	if mux == nil {
		m, err := reactor.NewDefault(cfg.Logger)
		if err == nil {
			ctx, cancel := context.WithCancel(context.Background())
			p.ownedMux = m
			p.muxCancel = cancel
			go func() {
				if err := m.Run(ctx); err != nil {
					log.Error("reactor dispatch loop failed", "err", err)
				}
			}()
			mux = m
		}
	}

	jr := cfg.Runner
	if jr == nil {
		pr := runner.New(cfg.RunnerWorkers, cfg.Logger)
		p.ownedRunner = pr
		jr = pr
	}

	t, err := task.New(task.Config{
		Driver:       drv,
		Sink:         sink,
		Mux:          mux,
		Runner:       jr,
		BinaryOutput: cfg.BinaryOutput,
		Logger:       cfg.Logger,
	})
	if err != nil {
		p.releaseOwned()
		return nil, err
	}

	p.task = t
	t.Start()
	return p, nil
}

// Output delivers one contiguous chunk to the driver.
func (p *Port) Output(buf []byte) error { return p.task.Output(buf) }

// OutputV delivers fragmented data to the driver.
func (p *Port) OutputV(vec []*iodata.Fragment) error { return p.task.OutputV(vec) }

// Control issues a synchronous ioctl-style request to the driver.
func (p *Port) Control(caller api.PID, command int, buf []byte) ([]byte, error) {
	return p.task.Control(caller, command, buf)
}

// Call issues a synchronous structured request to the driver.
func (p *Port) Call(caller api.PID, command int, data iodata.Term) (iodata.Term, error) {
	return p.task.Call(caller, command, data)
}

// ProcessExit notifies the driver of a monitored process's termination.
func (p *Port) ProcessExit(ref api.Ref) error { return p.task.ProcessExit(ref) }

// Close runs the close protocol (flush, stop), waits for the task to
// finish, releases owned services, and returns the port's exit reason.
func (p *Port) Close() error {
	_ = p.task.Close() // already-stopped ports just report their reason below
	reason := p.task.Wait()
	p.releaseOwned()
	return reason
}

// Wait blocks until the port stops and returns its exit reason.
func (p *Port) Wait() error { return p.task.Wait() }

func (p *Port) releaseOwned() {
	if p.muxCancel != nil {
		p.muxCancel()
		p.muxCancel = nil
	}
	if p.ownedMux != nil {
		p.ownedMux.Close()
		p.ownedMux = nil
	}
	if p.ownedRunner != nil {
		p.ownedRunner.Close()
		p.ownedRunner = nil
	}
}

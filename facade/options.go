// File: facade/options.go
// Package facade defines functional options for Open.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package facade

import (
	"log/slog"

	"github.com/momentics/portdrv/api"
)

// Config holds parameters immutable per port.
type Config struct {
	RunnerWorkers int             // workers for an owned job runner
	BinaryOutput  bool            // send-binary-data policy
	Mux           api.Multiplexer // shared multiplexer; nil creates one
	Runner        api.JobRunner   // shared job runner; nil creates one
	Logger        *slog.Logger    // nil falls back to slog.Default
}

// DefaultConfig returns default configuration values.
func DefaultConfig() *Config {
	return &Config{
		RunnerWorkers: 4,
	}
}

// Option customizes port initialization.
type Option func(*Config)

// WithRunnerWorkers sets the worker count of an owned job runner.
func WithRunnerWorkers(n int) Option {
	return func(c *Config) { c.RunnerWorkers = n }
}

// WithBinaryOutput sets the port's send-binary-data policy: whether
// non-empty Output2 bodies are delivered as binaries or as text.
func WithBinaryOutput(on bool) Option {
	return func(c *Config) { c.BinaryOutput = on }
}

// WithMultiplexer shares an existing multiplexer instead of creating one.
// The caller keeps ownership of its dispatch loop and Close.
func WithMultiplexer(m api.Multiplexer) Option {
	return func(c *Config) { c.Mux = m }
}

// WithJobRunner shares an existing job runner instead of creating one.
func WithJobRunner(r api.JobRunner) Option {
	return func(c *Config) { c.Runner = r }
}

// WithLogger sets the logger for the port's task and owned services.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

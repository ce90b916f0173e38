// Package reactor implements the shared readiness multiplexer: one
// registration table across all ports, a platform poller behind it, and a
// dispatch loop that fans readiness back out to each owning task.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package reactor

// Package task implements the sequential execution context owning one
// port: a single-consumer mailbox goroutine that sequences every driver
// callback, the port's single-slot timer, and the close protocol.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package task

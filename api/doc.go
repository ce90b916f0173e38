// Package api defines the contracts shared between port drivers and the
// runtime services that host them: the driver callback set, the event
// interest vocabulary, and the task/multiplexer/runner interfaces.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package api

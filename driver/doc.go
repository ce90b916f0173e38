// Package driver implements the port driver adapter: the Instance type a
// concrete driver embeds to reach the runtime's driver_* primitives, and
// the buffered output queue behind them.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package driver

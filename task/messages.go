// File: task/messages.go
// Package task: the closed message set drained by the port loop.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package task

import (
	"github.com/momentics/portdrv/api"
	"github.com/momentics/portdrv/iodata"
)

type msgOutput struct {
	buf []byte
}

type msgOutputV struct {
	vec []*iodata.Fragment
}

type msgReady struct {
	ch  api.Channel
	ops api.InterestOp
}

type msgReleased struct {
	ch api.Channel
}

type msgAsyncDone struct {
	job api.AsyncJob
}

type msgTimeout struct {
	gen uint64
}

type msgProcessExit struct {
	ref api.Ref
}

type ctrlReply struct {
	buf []byte
	err error
}

type msgControl struct {
	caller  api.PID
	command int
	buf     []byte
	reply   chan ctrlReply
}

type callReply struct {
	data iodata.Term
	err  error
}

type msgCall struct {
	caller  api.PID
	command int
	data    iodata.Term
	reply   chan callReply
}

type msgClose struct{}

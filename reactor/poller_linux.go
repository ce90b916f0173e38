//go:build linux
// +build linux

// File: reactor/poller_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7)-based poller implementation and factory.

package reactor

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/momentics/portdrv/api"
)

// epollPoller watches fds level-triggered: a registration keeps firing
// until the driver clears interest, matching the select model.
type epollPoller struct {
	epfd int
}

// newPlatformPoller constructs the epoll-backed Poller for Linux.
func newPlatformPoller() (Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	return &epollPoller{epfd: epfd}, nil
}

func epollEvents(ops api.InterestOp) uint32 {
	var ev uint32
	if ops&(api.OpRead|api.OpAccept) != 0 {
		ev |= unix.EPOLLIN
	}
	if ops&(api.OpWrite|api.OpConnect) != 0 {
		ev |= unix.EPOLLOUT
	}
	return ev
}

func (p *epollPoller) ctl(op int, fd uintptr, ops api.InterestOp) error {
	ev := &unix.EpollEvent{Events: epollEvents(ops), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, op, int(fd), ev); err != nil {
		return fmt.Errorf("epoll ctl: %w", err)
	}
	return nil
}

func (p *epollPoller) Add(fd uintptr, ops api.InterestOp) error {
	return p.ctl(unix.EPOLL_CTL_ADD, fd, ops)
}

func (p *epollPoller) Modify(fd uintptr, ops api.InterestOp) error {
	return p.ctl(unix.EPOLL_CTL_MOD, fd, ops)
}

func (p *epollPoller) Remove(fd uintptr) error {
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, int(fd), nil); err != nil {
		return fmt.Errorf("epoll ctl del: %w", err)
	}
	return nil
}

func (p *epollPoller) Wait(events []PollEvent, timeoutMs int) (int, error) {
	raw := make([]unix.EpollEvent, len(events))
	n, err := unix.EpollWait(p.epfd, raw, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, fmt.Errorf("epoll wait: %w", err)
	}

	for i := 0; i < n; i++ {
		var ops api.InterestOp
		if raw[i].Events&unix.EPOLLIN != 0 {
			// The registration intersection downstream picks read vs accept.
			ops |= api.OpRead | api.OpAccept
		}
		if raw[i].Events&unix.EPOLLOUT != 0 {
			ops |= api.OpWrite | api.OpConnect
		}
		events[i] = PollEvent{
			Fd:  uintptr(raw[i].Fd),
			Ops: ops,
			Err: raw[i].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0,
		}
	}
	return n, nil
}

func (p *epollPoller) Close() error {
	return unix.Close(p.epfd)
}

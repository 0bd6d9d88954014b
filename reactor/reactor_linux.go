//go:build linux
// +build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7)-based readiness multiplexer.

package reactor

import (
	"errors"
	"fmt"
	"time"

	"github.com/momentics/pinselect/api"
	"golang.org/x/sys/unix"
)

// Epoll is an epoll-based readiness multiplexer. The tag given to Add is
// carried in the 64-bit epoll data word and handed back by Wait.
type Epoll struct {
	epfd int
	raw  []unix.EpollEvent
}

var _ api.Multiplexer = (*Epoll)(nil)

// NewEpoll creates a close-on-exec epoll instance.
func NewEpoll() (*Epoll, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	return &Epoll{epfd: epfd}, nil
}

func newMultiplexer() (api.Multiplexer, error) {
	return NewEpoll()
}

// Add watches fd. A descriptor that is already watched is modified in place.
func (e *Epoll) Add(fd int, tag uint64, events api.Interest) error {
	ev := unix.EpollEvent{Events: interestToEpoll(events)}
	setTag(&ev, tag)
	err := unix.EpollCtl(e.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
	if errors.Is(err, unix.EEXIST) {
		err = unix.EpollCtl(e.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
	}
	if err != nil {
		return fmt.Errorf("epoll ctl add fd=%d: %w", fd, err)
	}
	return nil
}

// Delete stops watching fd. ENOENT and EBADF wrap api.ErrNotRegistered:
// the kernel drops closed descriptors from the interest list on its own.
func (e *Epoll) Delete(fd int) error {
	err := unix.EpollCtl(e.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, unix.ENOENT), errors.Is(err, unix.EBADF):
		return fmt.Errorf("epoll ctl del fd=%d: %w (%v)", fd, api.ErrNotRegistered, err)
	default:
		return fmt.Errorf("epoll ctl del fd=%d: %w", fd, err)
	}
}

// Wait blocks for events and translates them into buf.
func (e *Epoll) Wait(buf []api.Event, timeout time.Duration) (int, error) {
	if len(buf) == 0 {
		return 0, fmt.Errorf("epoll wait: empty event buffer: %w", api.ErrInvalidArgument)
	}
	if cap(e.raw) < len(buf) {
		e.raw = make([]unix.EpollEvent, len(buf))
	}
	raw := e.raw[:len(buf)]

	msec := -1
	if timeout >= 0 {
		msec = int(timeout / time.Millisecond)
	}

	n, err := unix.EpollWait(e.epfd, raw, msec)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, fmt.Errorf("epoll wait: %w", err)
	}
	for i := 0; i < n; i++ {
		buf[i] = api.Event{
			Tag:   getTag(&raw[i]),
			Flags: epollToInterest(raw[i].Events),
		}
	}
	return n, nil
}

// Close releases the epoll descriptor.
func (e *Epoll) Close() error {
	return unix.Close(e.epfd)
}

// The epoll data word is a union; Fd and Pad together span its 8 bytes.
func setTag(ev *unix.EpollEvent, tag uint64) {
	ev.Fd = int32(uint32(tag))
	ev.Pad = int32(uint32(tag >> 32))
}

func getTag(ev *unix.EpollEvent) uint64 {
	return uint64(uint32(ev.Fd)) | uint64(uint32(ev.Pad))<<32
}

func interestToEpoll(events api.Interest) uint32 {
	var out uint32
	if events&api.InterestRead != 0 {
		out |= unix.EPOLLIN
	}
	if events&api.InterestPriority != 0 {
		out |= unix.EPOLLPRI
	}
	return out
}

func epollToInterest(events uint32) api.Interest {
	var out api.Interest
	if events&unix.EPOLLIN != 0 {
		out |= api.InterestRead
	}
	if events&unix.EPOLLPRI != 0 {
		out |= api.InterestPriority
	}
	if events&unix.EPOLLERR != 0 {
		out |= api.InterestError
	}
	if events&unix.EPOLLHUP != 0 {
		out |= api.InterestHangup
	}
	return out
}

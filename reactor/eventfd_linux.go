//go:build linux
// +build linux

// File: reactor/eventfd_linux.go
// Author: momentics <momentics@gmail.com>
//
// eventfd(2)-based wakeup signal.

package reactor

import (
	"encoding/binary"
	"fmt"

	"github.com/momentics/pinselect/api"
	"golang.org/x/sys/unix"
)

// EventFd is a non-blocking eventfd used to interrupt an epoll wait.
type EventFd struct {
	fd int
}

var _ api.WakeupSignal = (*EventFd)(nil)

// NewEventFd creates a close-on-exec, non-blocking eventfd with a zero counter.
func NewEventFd() (*EventFd, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("eventfd create: %w", err)
	}
	return &EventFd{fd: fd}, nil
}

func newWakeupSignal() (api.WakeupSignal, error) {
	return NewEventFd()
}

// Fd returns the eventfd descriptor.
func (e *EventFd) Fd() int {
	return e.fd
}

// Notify increments the counter by one. EAGAIN means the counter is
// saturated, so the descriptor is already readable and the wakeup stands.
func (e *EventFd) Notify() error {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	for {
		_, err := unix.Write(e.fd, buf[:])
		switch err {
		case nil, unix.EAGAIN:
			return nil
		case unix.EINTR:
			continue
		default:
			return fmt.Errorf("eventfd notify: %w", err)
		}
	}
}

// Drain resets the counter to zero.
func (e *EventFd) Drain() error {
	var buf [8]byte
	for {
		_, err := unix.Read(e.fd, buf[:])
		switch err {
		case nil, unix.EAGAIN:
			return nil
		case unix.EINTR:
			continue
		default:
			return fmt.Errorf("eventfd drain: %w", err)
		}
	}
}

// Close releases the descriptor.
func (e *EventFd) Close() error {
	return unix.Close(e.fd)
}

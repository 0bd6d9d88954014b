//go:build !linux
// +build !linux

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package reactor

import (
	"fmt"

	"github.com/momentics/pinselect/api"
)

func newMultiplexer() (api.Multiplexer, error) {
	return nil, fmt.Errorf("reactor: epoll: %w", api.ErrNotSupported)
}

func newWakeupSignal() (api.WakeupSignal, error) {
	return nil, fmt.Errorf("reactor: eventfd: %w", api.ErrNotSupported)
}

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the OS readiness multiplexer (epoll) and the
// eventfd wakeup signal consumed by the pin reactor in package gpio.
// Linux is the only supported platform; elsewhere the constructors fail
// with api.ErrNotSupported.
package reactor

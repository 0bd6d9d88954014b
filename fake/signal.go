// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"sync"
	"sync/atomic"
)

// Signal is an api.WakeupSignal bound to a fake Multiplexer. Like an
// eventfd it stays ready until drained: Notify fires one event under the
// signal's registered tag unless one is already pending.
type Signal struct {
	FdValue int
	Mux     *Multiplexer

	// Manual suppresses firing; tests then call Mux.FireFd themselves.
	Manual atomic.Bool

	mu       sync.Mutex
	ready    bool
	notifies atomic.Int64
	drains   atomic.Int64
	closed   atomic.Bool

	notifyErr error
}

// NewSignal returns a signal with the given descriptor number.
func NewSignal(mux *Multiplexer, fd int) *Signal {
	return &Signal{FdValue: fd, Mux: mux}
}

func (s *Signal) Fd() int { return s.FdValue }

// SetNotifyErr makes every later Notify fail with err until reset with nil.
func (s *Signal) SetNotifyErr(err error) {
	s.mu.Lock()
	s.notifyErr = err
	s.mu.Unlock()
}

func (s *Signal) Notify() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notifyErr != nil {
		return s.notifyErr
	}
	s.notifies.Add(1)
	if s.ready || s.Manual.Load() {
		return nil
	}
	if s.Mux.FireFd(s.FdValue) {
		s.ready = true
	}
	return nil
}

func (s *Signal) Drain() error {
	s.drains.Add(1)
	s.mu.Lock()
	s.ready = false
	s.mu.Unlock()
	return nil
}

func (s *Signal) Close() error {
	s.closed.Store(true)
	return nil
}

// Notifies reports how many times Notify succeeded.
func (s *Signal) Notifies() int64 { return s.notifies.Load() }

// Drains reports how many times Drain was called.
func (s *Signal) Drains() int64 { return s.drains.Load() }

// Closed reports whether Close was called.
func (s *Signal) Closed() bool { return s.closed.Load() }

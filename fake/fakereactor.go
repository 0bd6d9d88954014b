// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/momentics/pinselect/api"
)

// ErrClosed is returned by Wait once the multiplexer is closed.
var ErrClosed = errors.New("fake: multiplexer closed")

// Registration is one descriptor watched by a Multiplexer.
type Registration struct {
	Tag    uint64
	Events api.Interest
}

// Multiplexer is an in-memory api.Multiplexer driven by Fire.
// Wait only returns events that were fired explicitly.
type Multiplexer struct {
	mu      sync.Mutex
	cond    *sync.Cond
	regs    map[int]Registration
	pending []api.Event
	waiters int
	closed  bool

	// Error injection. A non-nil error is returned by every matching call.
	AddErr    error
	DeleteErr error
	waitErr   error
}

// NewMultiplexer returns an empty fake multiplexer.
func NewMultiplexer() *Multiplexer {
	m := &Multiplexer{regs: make(map[int]Registration)}
	m.cond = sync.NewCond(&m.mu)
	return m
}

func (m *Multiplexer) Add(fd int, tag uint64, events api.Interest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AddErr != nil {
		return m.AddErr
	}
	m.regs[fd] = Registration{Tag: tag, Events: events}
	return nil
}

func (m *Multiplexer) Delete(fd int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	if _, ok := m.regs[fd]; !ok {
		return fmt.Errorf("fake: fd=%d: %w", fd, api.ErrNotRegistered)
	}
	delete(m.regs, fd)
	return nil
}

// Wait blocks until events are fired, the multiplexer fails or is closed.
// A non-negative timeout is honoured only for the empty case.
func (m *Multiplexer) Wait(buf []api.Event, timeout time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if timeout >= 0 {
		if len(m.pending) == 0 && m.waitErr == nil && !m.closed {
			return 0, nil
		}
	}

	m.waiters++
	for len(m.pending) == 0 && m.waitErr == nil && !m.closed {
		m.cond.Wait()
	}
	m.waiters--

	switch {
	case m.waitErr != nil:
		return 0, m.waitErr
	case m.closed && len(m.pending) == 0:
		return 0, ErrClosed
	}
	n := copy(buf, m.pending)
	m.pending = m.pending[n:]
	return n, nil
}

func (m *Multiplexer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.cond.Broadcast()
	return nil
}

// Fire makes the given events visible to Wait as a single batch.
func (m *Multiplexer) Fire(events ...api.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, events...)
	m.cond.Broadcast()
}

// FireFd fires a readable event for fd under its registered tag.
// It reports false if fd is not registered.
func (m *Multiplexer) FireFd(fd int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.regs[fd]
	if !ok {
		return false
	}
	m.pending = append(m.pending, api.Event{Tag: reg.Tag, Flags: api.InterestRead})
	m.cond.Broadcast()
	return true
}

// FailWait makes the current and all later Wait calls return err.
func (m *Multiplexer) FailWait(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waitErr = err
	m.cond.Broadcast()
}

// SetAddErr sets the error returned by Add.
func (m *Multiplexer) SetAddErr(err error) {
	m.mu.Lock()
	m.AddErr = err
	m.mu.Unlock()
}

// Registered returns the registration for fd.
func (m *Multiplexer) Registered(fd int) (Registration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.regs[fd]
	return reg, ok
}

// Waiters reports how many goroutines are blocked in Wait.
func (m *Multiplexer) Waiters() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waiters
}

// Closed reports whether Close was called.
func (m *Multiplexer) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Defines the collaborator contracts consumed by the pin reactor:
// the readiness multiplexer, the wakeup signal and the waker.

package api

import "time"

// Interest is a bit set of readiness conditions.
type Interest uint32

const (
	// InterestRead reports that the descriptor is readable.
	InterestRead Interest = 1 << iota
	// InterestPriority reports urgent data, or an edge on a sysfs GPIO value file.
	InterestPriority
	// InterestError reports an error condition. Always delivered, never requested.
	InterestError
	// InterestHangup reports the peer hung up. Always delivered, never requested.
	InterestHangup
)

// Event is a single readiness record returned by Multiplexer.Wait.
// It is only valid until the next Wait call reuses the buffer slot.
type Event struct {
	Tag   uint64
	Flags Interest
}

// Multiplexer wraps an OS readiness facility such as epoll.
type Multiplexer interface {
	// Add watches fd for the given interest and reports it under tag.
	// Adding an already watched fd replaces its tag and interest.
	Add(fd int, tag uint64, events Interest) error

	// Delete stops watching fd. Errors wrapping ErrNotRegistered mean
	// fd was not watched.
	Delete(fd int) error

	// Wait fills buf with ready events and returns how many were written.
	// A negative timeout blocks until at least one event is ready.
	// An interrupted wait returns zero events and no error.
	Wait(buf []Event, timeout time.Duration) (int, error)

	// Close releases the underlying descriptor.
	Close() error
}

// WakeupSignal is an always-open descriptor used to interrupt a blocking Wait.
type WakeupSignal interface {
	// Fd is the descriptor to register with the Multiplexer.
	Fd() int

	// Notify makes a pending or future Wait return. Safe for concurrent use.
	Notify() error

	// Drain consumes pending notifications so the signal stops reporting ready.
	Drain() error

	// Close releases the descriptor.
	Close() error
}

// Waker resumes a suspended computation. Wake may be called any number of
// times; calling it when nothing waits is a no-op.
type Waker interface {
	Wake()
}

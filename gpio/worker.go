// File: gpio/worker.go
// Author: momentics <momentics@gmail.com>
//
// Reactor worker: the only goroutine that touches the multiplexer and the
// pin-to-waker map.

package gpio

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/momentics/pinselect/api"
	"github.com/momentics/pinselect/internal/concurrency"
	"github.com/sirupsen/logrus"
)

// SentinelTag identifies the wakeup signal's own readiness event.
// Pin tags are uint8 and can never reach it.
const SentinelTag uint64 = math.MaxUint64

// pinInterest is the readiness requested for every pin descriptor.
const pinInterest = api.InterestRead | api.InterestPriority

type opcode uint8

const (
	opAdd opcode = iota
	opRemove
	opQuit
)

func (o opcode) String() string {
	switch o {
	case opAdd:
		return "add"
	case opRemove:
		return "remove"
	case opQuit:
		return "quit"
	default:
		return fmt.Sprintf("opcode(%d)", uint8(o))
	}
}

type command struct {
	waker api.Waker
	fd    int
	op    opcode
	pin   uint8
}

type pending struct {
	waker api.Waker
	fd    int
}

// Stats is a snapshot of worker counters.
type Stats struct {
	Wakeups    uint64 // wakeup signal drains
	Commands   uint64 // commands applied, Quit included
	Dispatched uint64 // wakers invoked
	Ignored    uint64 // events for pins with no waker
}

type counters struct {
	wakeups    atomic.Uint64
	commands   atomic.Uint64
	dispatched atomic.Uint64
	ignored    atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Wakeups:    c.wakeups.Load(),
		Commands:   c.commands.Load(),
		Dispatched: c.dispatched.Load(),
		Ignored:    c.ignored.Load(),
	}
}

type worker struct {
	mux    api.Multiplexer
	signal api.WakeupSignal
	cmds   *concurrency.CommandQueue[command]
	stats  *counters
	log    *logrus.Entry

	events []api.Event
	wakers map[uint8]pending
	pins   map[int]uint8

	// err is written once before done is closed.
	err error
}

func newWorker(mux api.Multiplexer, signal api.WakeupSignal, cmds *concurrency.CommandQueue[command], capacity int, stats *counters, logger *logrus.Entry) *worker {
	return &worker{
		mux:    mux,
		signal: signal,
		cmds:   cmds,
		stats:  stats,
		log:    logger,
		events: make([]api.Event, capacity),
		wakers: make(map[uint8]pending),
		pins:   make(map[int]uint8),
	}
}

// run executes the loop until Quit or a fatal error, then closes the
// command queue and the multiplexer and closes done.
func (w *worker) run(lockThread bool, done chan<- struct{}) {
	if lockThread {
		defer concurrency.LockWorkerThread()()
	}
	defer func() {
		if r := recover(); r != nil {
			w.err = api.WrapError(api.ErrCodeWorker, "select: worker", fmt.Errorf("%w: %v", api.ErrWorkerPanic, r))
		}
		w.cmds.Close()
		if err := w.mux.Close(); err != nil {
			w.log.WithError(err).Warn("multiplexer close failed")
		}
		if w.err != nil {
			w.log.WithError(w.err).Error("worker terminated")
		} else {
			w.log.Debug("worker stopped")
		}
		close(done)
	}()

	w.log.WithField("capacity", len(w.events)).Debug("worker started")
	w.err = w.loop()
}

func (w *worker) loop() error {
	for {
		n, err := w.mux.Wait(w.events, -1)
		if err != nil {
			return api.WrapError(api.ErrCodeWorker, "select: wait", err)
		}
		for i := 0; i < n; i++ {
			tag := w.events[i].Tag
			if tag != SentinelTag {
				w.dispatch(tag)
				continue
			}
			quit, err := w.drain()
			if err != nil || quit {
				return err
			}
		}
	}
}

// drain consumes the wakeup signal, then applies queued commands until the
// queue is empty or Quit is found. Commands queued behind Quit are dropped.
func (w *worker) drain() (quit bool, err error) {
	if err := w.signal.Drain(); err != nil {
		return false, api.WrapError(api.ErrCodeWorker, "select: wakeup drain", err)
	}
	w.stats.wakeups.Add(1)

	for {
		cmd, ok := w.cmds.TryPop()
		if !ok {
			return false, nil
		}
		w.stats.commands.Add(1)
		switch cmd.op {
		case opQuit:
			return true, nil
		case opAdd:
			if err := w.add(cmd.fd, cmd.pin, cmd.waker); err != nil {
				return false, err
			}
		case opRemove:
			if err := w.remove(cmd.fd); err != nil {
				return false, err
			}
		}
	}
}

func (w *worker) add(fd int, pin uint8, waker api.Waker) error {
	if prev, ok := w.wakers[pin]; ok && prev.fd != fd && w.pins[prev.fd] == pin {
		// the old descriptor would otherwise keep firing under this pin
		delete(w.pins, prev.fd)
		if err := w.mux.Delete(prev.fd); err != nil && !errors.Is(err, api.ErrNotRegistered) {
			return api.WrapError(api.ErrCodeWorker, "select: release reassigned pin", err).
				WithContext("fd", prev.fd).
				WithContext("pin", pin)
		}
	}
	if prevPin, ok := w.pins[fd]; ok && prevPin != pin {
		delete(w.wakers, prevPin)
	}
	w.wakers[pin] = pending{waker: waker, fd: fd}
	w.pins[fd] = pin

	if err := w.mux.Add(fd, uint64(pin), pinInterest); err != nil {
		return api.WrapError(api.ErrCodeWorker, "select: register", err).
			WithContext("fd", fd).
			WithContext("pin", pin)
	}
	return nil
}

// remove forgets fd. A descriptor that was never added is not an error.
func (w *worker) remove(fd int) error {
	if pin, ok := w.pins[fd]; ok {
		delete(w.pins, fd)
		if p, ok := w.wakers[pin]; ok && p.fd == fd {
			delete(w.wakers, pin)
		}
	}
	err := w.mux.Delete(fd)
	if err != nil && !errors.Is(err, api.ErrNotRegistered) {
		return api.WrapError(api.ErrCodeWorker, "select: unregister", err).WithContext("fd", fd)
	}
	return nil
}

func (w *worker) dispatch(tag uint64) {
	if tag > math.MaxUint8 {
		w.stats.ignored.Add(1)
		return
	}
	p, ok := w.wakers[uint8(tag)]
	if !ok {
		w.stats.ignored.Add(1)
		return
	}
	w.stats.dispatched.Add(1)
	p.waker.Wake()
}

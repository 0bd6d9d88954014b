// File: gpio/select.go
// Author: momentics <momentics@gmail.com>
//
// Reactor handle: registration front end and lifecycle of the worker.

package gpio

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/momentics/pinselect/api"
	"github.com/momentics/pinselect/internal/concurrency"
	"github.com/momentics/pinselect/reactor"
	"github.com/sirupsen/logrus"
)

// MaxPin is the highest pin tag accepted by configuration layers.
const MaxPin uint8 = math.MaxUint8 - 1

// Stop keeps re-signalling a worker it could not wake for this long.
const (
	stopRetryInterval = 10 * time.Millisecond
	stopRetries       = 50
)

// Select multiplexes readiness of many pin descriptors onto one worker.
// All methods are safe for concurrent use.
type Select struct {
	cmds   *concurrency.CommandQueue[command]
	signal api.WakeupSignal
	worker *worker
	stats  *counters
	log    *logrus.Entry
	done   chan struct{}

	// mu keeps Notify from racing the close of the signal descriptor.
	mu        sync.RWMutex
	sigClosed bool
	stopOnce  sync.Once
}

// New starts a reactor whose worker retrieves at most capacity events per
// wait. capacity does not limit the number of registered pins.
func New(capacity int, opts ...Option) (*Select, error) {
	if capacity < 1 {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "select: capacity must be positive").
			WithContext("capacity", capacity)
	}
	cfg, err := resolveSelectOptions(opts)
	if err != nil {
		return nil, err
	}

	signal := cfg.signal
	if signal == nil {
		if signal, err = reactor.NewWakeupSignal(); err != nil {
			if cfg.mux != nil {
				_ = cfg.mux.Close()
			}
			return nil, constructionError("select: wakeup signal", err)
		}
	}
	mux := cfg.mux
	if mux == nil {
		if mux, err = reactor.NewMultiplexer(); err != nil {
			_ = signal.Close()
			return nil, constructionError("select: multiplexer", err)
		}
	}
	if err := mux.Add(signal.Fd(), SentinelTag, api.InterestRead|api.InterestPriority); err != nil {
		_ = mux.Close()
		_ = signal.Close()
		return nil, constructionError("select: register wakeup signal", err)
	}

	s := &Select{
		cmds:   concurrency.NewCommandQueue[command](),
		signal: signal,
		stats:  new(counters),
		log:    cfg.logger,
		done:   make(chan struct{}),
	}
	s.worker = newWorker(mux, signal, s.cmds, capacity, s.stats, cfg.logger)
	go s.worker.run(cfg.lockOSThread, s.done)
	return s, nil
}

func constructionError(msg string, err error) error {
	code := api.ErrCodeConstruction
	if errors.Is(err, api.ErrNotSupported) {
		code = api.ErrCodeNotSupported
	}
	return api.WrapError(code, msg, err)
}

// Register asks the worker to wake w whenever fd is ready, reporting it
// under pin. A later Register of the same pin replaces the waker.
// It returns false if the reactor is gone; w will then never be woken.
func (s *Select) Register(fd int, pin uint8, w api.Waker) bool {
	return s.send(command{op: opAdd, fd: fd, pin: pin, waker: w})
}

// Unregister stops watching fd. The waker may still be called once for an
// event the worker already collected.
func (s *Select) Unregister(fd int) bool {
	return s.send(command{op: opRemove, fd: fd})
}

// send enqueues c and signals the worker. A notify failure is reported as
// a failed send; the command stays queued.
func (s *Select) send(c command) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sigClosed || !s.cmds.Push(c) {
		return false
	}
	if err := s.signal.Notify(); err != nil {
		s.log.WithError(err).WithField("op", c.op).Error("wakeup notify failed")
		return false
	}
	return true
}

// Stop shuts the worker down and waits for it to exit, then releases the
// wakeup signal. Repeated and concurrent calls are no-ops that wait for the
// first one to finish. A worker stuck in the multiplexer wait blocks Stop.
//
// If the wakeup signal keeps failing, Stop gives up after a bounded number
// of retries, logs the failure and returns with the worker still running
// and the signal open. Stop must not be called from a waker: the worker
// would wait for itself.
func (s *Select) Stop() {
	s.stopOnce.Do(func() {
		if !s.send(command{op: opQuit}) && !s.renotify() {
			s.log.Error("stop: worker could not be woken, leaving it running")
			return
		}
		<-s.done

		s.mu.Lock()
		defer s.mu.Unlock()
		s.sigClosed = true
		if err := s.signal.Close(); err != nil {
			s.log.WithError(err).Warn("wakeup signal close failed")
		}
	})
}

// renotify retries the wakeup for a queued Quit until it succeeds or the
// worker is gone.
func (s *Select) renotify() bool {
	ticker := time.NewTicker(stopRetryInterval)
	defer ticker.Stop()
	for i := 0; i < stopRetries; i++ {
		select {
		case <-s.done:
			return true
		case <-ticker.C:
		}
		if err := s.notify(); err == nil {
			return true
		}
	}
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Select) notify() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.signal.Notify()
}

// Done is closed once the worker has exited, for any reason.
func (s *Select) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that terminated the worker. It is nil while the
// worker runs and after a clean Stop.
func (s *Select) Err() error {
	select {
	case <-s.done:
		return s.worker.err
	default:
		return nil
	}
}

// Stats returns the worker counters.
func (s *Select) Stats() Stats {
	return s.stats.snapshot()
}

// WaitReady blocks until fd is ready, ctx is done or the reactor exits.
// The registration is dropped before returning.
func (s *Select) WaitReady(ctx context.Context, fd int, pin uint8) error {
	w := NewChanWaker()
	if !s.Register(fd, pin, w) {
		return api.ErrReactorClosed
	}
	defer s.Unregister(fd)

	select {
	case <-w.C():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return api.ErrReactorClosed
	}
}

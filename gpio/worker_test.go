package gpio

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/momentics/pinselect/api"
	"github.com/momentics/pinselect/fake"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const signalFd = 1000

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newFakeSelect(t *testing.T, capacity int) (*Select, *fake.Multiplexer, *fake.Signal) {
	t.Helper()
	mux := fake.NewMultiplexer()
	sig := fake.NewSignal(mux, signalFd)
	s, err := New(capacity,
		WithMultiplexer(mux),
		WithWakeupSignal(sig),
		WithLockOSThread(false),
		WithLogger(quietLogger()),
	)
	require.NoError(t, err)
	t.Cleanup(s.Stop)
	return s, mux, sig
}

// blockWorker waits until the worker sits in Wait with manual signalling,
// so the test decides exactly which commands one drain sees.
func blockWorker(t *testing.T, mux *fake.Multiplexer, sig *fake.Signal) {
	t.Helper()
	sig.Manual.Store(true)
	require.Eventually(t, func() bool { return mux.Waiters() == 1 }, time.Second, time.Millisecond)
}

func waitDone(t *testing.T, s *Select) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not exit")
	}
}

func TestQuitShortCircuitsBatch(t *testing.T) {
	s, mux, sig := newFakeSelect(t, 8)
	w := fake.NewCountingWaker(4)

	require.True(t, s.Register(7, 3, w))
	require.Eventually(t, func() bool { _, ok := mux.Registered(7); return ok }, time.Second, time.Millisecond)

	blockWorker(t, mux, sig)
	require.True(t, s.cmds.Push(command{op: opQuit}))
	mux.Fire(api.Event{Tag: SentinelTag}, api.Event{Tag: 3, Flags: api.InterestRead})

	waitDone(t, s)
	assert.NoError(t, s.Err())
	assert.Zero(t, w.Count(), "event after Quit in the same batch must not be dispatched")
}

func TestAddQuitAddAppliesOnlyFirst(t *testing.T) {
	s, mux, sig := newFakeSelect(t, 8)
	blockWorker(t, mux, sig)

	require.True(t, s.cmds.Push(command{op: opAdd, fd: 7, pin: 3, waker: fake.NewCountingWaker(1)}))
	require.True(t, s.cmds.Push(command{op: opQuit}))
	require.True(t, s.cmds.Push(command{op: opAdd, fd: 8, pin: 4, waker: fake.NewCountingWaker(1)}))
	mux.FireFd(signalFd)

	waitDone(t, s)
	_, first := mux.Registered(7)
	_, second := mux.Registered(8)
	assert.True(t, first)
	assert.False(t, second)
	assert.Equal(t, uint64(2), s.Stats().Commands)
	assert.False(t, s.Register(9, 5, fake.NewCountingWaker(1)), "queue must reject sends after exit")
}

func TestDrainConsumesSignalFirst(t *testing.T) {
	s, mux, sig := newFakeSelect(t, 8)

	for i := 0; i < 10; i++ {
		require.True(t, s.Register(10+i, uint8(i), fake.NewCountingWaker(1)))
	}
	require.Eventually(t, func() bool { _, ok := mux.Registered(19); return ok }, time.Second, time.Millisecond)

	assert.GreaterOrEqual(t, sig.Drains(), int64(1))
	assert.LessOrEqual(t, sig.Drains(), sig.Notifies(), "one drain per wakeup at most")
	require.Eventually(t, func() bool {
		return uint64(sig.Drains()) == s.Stats().Wakeups
	}, time.Second, time.Millisecond)
}

func TestReassignedPinReleasesOldFd(t *testing.T) {
	s, mux, _ := newFakeSelect(t, 8)
	a := fake.NewCountingWaker(4)
	b := fake.NewCountingWaker(4)

	require.True(t, s.Register(7, 3, a))
	require.Eventually(t, func() bool { _, ok := mux.Registered(7); return ok }, time.Second, time.Millisecond)
	require.True(t, s.Register(8, 3, b))
	require.Eventually(t, func() bool {
		_, old := mux.Registered(7)
		_, cur := mux.Registered(8)
		return !old && cur
	}, time.Second, time.Millisecond)

	assert.False(t, mux.FireFd(7), "old descriptor must leave the multiplexer")
	assert.Zero(t, b.Count())
	assert.Zero(t, a.Count())

	require.True(t, mux.FireFd(8))
	select {
	case <-b.C():
	case <-time.After(time.Second):
		t.Fatal("waker for reassigned pin was not woken")
	}
	assert.Zero(t, a.Count())
}

func TestRemoveKeepsReassignedPin(t *testing.T) {
	s, mux, _ := newFakeSelect(t, 8)
	a := fake.NewCountingWaker(4)
	b := fake.NewCountingWaker(4)

	require.True(t, s.Register(7, 3, a))
	require.True(t, s.Register(8, 3, b))
	require.True(t, s.Unregister(7))
	require.Eventually(t, func() bool { return s.Stats().Commands == 3 }, time.Second, time.Millisecond)
	require.NoError(t, s.Err())

	require.True(t, mux.FireFd(8))
	select {
	case <-b.C():
	case <-time.After(time.Second):
		t.Fatal("waker for reassigned pin was dropped")
	}
	assert.Zero(t, a.Count())
}

func TestMovingFdToNewPinForgetsOldPin(t *testing.T) {
	s, mux, _ := newFakeSelect(t, 8)
	a := fake.NewCountingWaker(4)
	b := fake.NewCountingWaker(4)

	require.True(t, s.Register(7, 3, a))
	require.True(t, s.Register(7, 4, b))
	require.Eventually(t, func() bool {
		reg, ok := mux.Registered(7)
		return ok && reg.Tag == 4
	}, time.Second, time.Millisecond)

	mux.Fire(api.Event{Tag: 3, Flags: api.InterestRead})
	require.Eventually(t, func() bool { return s.Stats().Ignored == 1 }, time.Second, time.Millisecond)
	assert.Zero(t, a.Count())
}

func TestWorkerPanicIsRecorded(t *testing.T) {
	s, mux, _ := newFakeSelect(t, 8)

	require.True(t, s.Register(7, 3, WakerFunc(func() { panic("pin exploded") })))
	require.Eventually(t, func() bool { return mux.FireFd(7) }, time.Second, time.Millisecond)

	waitDone(t, s)
	err := s.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrWorkerPanic))
	assert.True(t, api.IsCode(err, api.ErrCodeWorker))
	assert.True(t, mux.Closed())
}

func TestOpcodeString(t *testing.T) {
	assert.Equal(t, "add", opAdd.String())
	assert.Equal(t, "remove", opRemove.String())
	assert.Equal(t, "quit", opQuit.String())
	assert.Equal(t, "opcode(9)", opcode(9).String())
}

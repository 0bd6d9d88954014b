// File: gpio/waker.go
// Author: momentics <momentics@gmail.com>

package gpio

// ChanWaker wakes a goroutine blocked on C. Wakes that arrive while nobody
// receives coalesce into one.
type ChanWaker struct {
	ch chan struct{}
}

// NewChanWaker returns a waker with a one-slot channel.
func NewChanWaker() *ChanWaker {
	return &ChanWaker{ch: make(chan struct{}, 1)}
}

// Wake never blocks.
func (w *ChanWaker) Wake() {
	select {
	case w.ch <- struct{}{}:
	default:
	}
}

// C is signalled after Wake.
func (w *ChanWaker) C() <-chan struct{} {
	return w.ch
}

// WakerFunc adapts a function to api.Waker. The function runs on the
// reactor worker and must not block. Calling Select.Stop from it
// deadlocks.
type WakerFunc func()

func (f WakerFunc) Wake() { f() }

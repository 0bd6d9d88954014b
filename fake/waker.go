// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import "sync/atomic"

// CountingWaker counts Wake calls and optionally forwards them to a channel.
type CountingWaker struct {
	n  atomic.Int64
	ch chan struct{}
}

// NewCountingWaker returns a waker that also sends on a buffered channel
// of the given size, dropping sends when it is full.
func NewCountingWaker(buffer int) *CountingWaker {
	return &CountingWaker{ch: make(chan struct{}, buffer)}
}

func (w *CountingWaker) Wake() {
	w.n.Add(1)
	select {
	case w.ch <- struct{}{}:
	default:
	}
}

// Count reports how many times Wake was called.
func (w *CountingWaker) Count() int64 { return w.n.Load() }

// C receives one value per Wake, up to the buffer size.
func (w *CountingWaker) C() <-chan struct{} { return w.ch }

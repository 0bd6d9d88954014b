// Package gpio
// Author: momentics <momentics@gmail.com>
//
// Pin interrupt reactor. A Select owns one worker goroutine, locked to an
// OS thread, that blocks in epoll_wait on behalf of every registered pin
// and wakes the waiter of a pin when its descriptor becomes ready.
//
// Callers never touch the multiplexer: Register, Unregister and Stop push
// a command onto an unbounded queue and poke an eventfd so the worker
// drains the queue promptly. The worker consumes the eventfd, applies every
// queued command in order and goes back to waiting.
//
// A waker stays registered after it fires; level-triggered descriptors keep
// firing until the caller consumes the condition or unregisters. Unregister
// does not cancel a wake already decided in the current event batch, so
// wakers must tolerate a late call.
package gpio

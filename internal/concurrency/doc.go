// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Concurrency primitives for the pin reactor: the unbounded command queue
// shared between caller goroutines and the reactor worker, and OS thread
// pinning for the worker goroutine.
package concurrency

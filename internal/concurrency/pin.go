// File: internal/concurrency/pin.go
// Author: momentics <momentics@gmail.com>
//
// Dedicated OS thread for long-running worker goroutines.

package concurrency

import "runtime"

// LockWorkerThread wires the calling goroutine to its current OS thread and
// returns the matching unlock. No other goroutine runs on that thread
// until unlock is called.
func LockWorkerThread() (unlock func()) {
	runtime.LockOSThread()
	return runtime.UnlockOSThread
}

// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral factories for the readiness multiplexer and wakeup signal.

package reactor

import "github.com/momentics/pinselect/api"

// NewMultiplexer constructs the platform readiness multiplexer.
func NewMultiplexer() (api.Multiplexer, error) {
	return newMultiplexer()
}

// NewWakeupSignal constructs the platform wakeup signal.
func NewWakeupSignal() (api.WakeupSignal, error) {
	return newWakeupSignal()
}

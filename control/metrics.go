// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Reactor counters published by the watcher tool under dotted names.

package control

import (
	"sync"

	"github.com/momentics/pinselect/gpio"
	"github.com/sirupsen/logrus"
)

// MetricsRegistry holds the last published value of each counter.
type MetricsRegistry struct {
	mu       sync.RWMutex
	counters map[string]uint64
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{counters: make(map[string]uint64)}
}

// Set records value under name.
func (mr *MetricsRegistry) Set(name string, value uint64) {
	mr.mu.Lock()
	mr.counters[name] = value
	mr.mu.Unlock()
}

// PublishStats records the reactor counters as prefix.wakeups,
// prefix.commands, prefix.dispatched and prefix.ignored.
func (mr *MetricsRegistry) PublishStats(prefix string, st gpio.Stats) {
	mr.Set(prefix+".wakeups", st.Wakeups)
	mr.Set(prefix+".commands", st.Commands)
	mr.Set(prefix+".dispatched", st.Dispatched)
	mr.Set(prefix+".ignored", st.Ignored)
}

// GetSnapshot returns a copy of the counters.
func (mr *MetricsRegistry) GetSnapshot() map[string]uint64 {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]uint64, len(mr.counters))
	for k, v := range mr.counters {
		out[k] = v
	}
	return out
}

// Fields returns the counters as log fields.
func (mr *MetricsRegistry) Fields() logrus.Fields {
	snap := mr.GetSnapshot()
	fields := make(logrus.Fields, len(snap))
	for k, v := range snap {
		fields[k] = v
	}
	return fields
}

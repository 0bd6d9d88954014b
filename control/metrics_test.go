package control_test

import (
	"testing"

	"github.com/momentics/pinselect/control"
	"github.com/momentics/pinselect/gpio"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRegistryPublishStats(t *testing.T) {
	mr := control.NewMetricsRegistry()
	assert.Empty(t, mr.GetSnapshot())

	mr.PublishStats("select", gpio.Stats{Wakeups: 2, Commands: 5, Dispatched: 3, Ignored: 1})
	mr.PublishStats("select", gpio.Stats{Wakeups: 4, Commands: 6, Dispatched: 3, Ignored: 1})

	assert.Equal(t, map[string]uint64{
		"select.wakeups":    4,
		"select.commands":   6,
		"select.dispatched": 3,
		"select.ignored":    1,
	}, mr.GetSnapshot())
}

func TestMetricsRegistryFields(t *testing.T) {
	mr := control.NewMetricsRegistry()
	mr.PublishStats("select", gpio.Stats{Dispatched: 7})

	fields := mr.Fields()
	assert.Len(t, fields, 4)
	assert.Equal(t, uint64(7), fields["select.dispatched"])

	fields["select.dispatched"] = 0
	assert.Equal(t, uint64(7), mr.GetSnapshot()["select.dispatched"], "fields are a copy")
}

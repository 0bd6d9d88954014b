package control_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/momentics/pinselect/api"
	"github.com/momentics/pinselect/control"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
capacity: 4
log_level: debug
pins:
  - name: door
    path: /sys/class/gpio/gpio17/value
    pin: 0
    edge: both
  - name: button
    path: /sys/class/gpio/gpio27/value
    pin: 1
`

func TestParseWatchConfig(t *testing.T) {
	cfg, err := control.ParseWatchConfig([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Capacity)
	assert.Equal(t, "debug", cfg.LogLevel)
	require.Len(t, cfg.Pins, 2)
	assert.Equal(t, "door", cfg.Pins[0].Name)
	assert.Equal(t, "both", cfg.Pins[0].Edge)
	assert.Equal(t, "/sys/class/gpio/gpio17/edge", cfg.Pins[0].EdgePath())
	assert.Equal(t, uint8(1), cfg.Pins[1].Pin)
}

func TestParseWatchConfigDefaults(t *testing.T) {
	cfg, err := control.ParseWatchConfig([]byte("pins: []\n"))
	require.NoError(t, err)
	assert.Equal(t, control.DefaultCapacity, cfg.Capacity)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestParseWatchConfigRejects(t *testing.T) {
	cases := map[string]string{
		"negative capacity": "capacity: -2\n",
		"empty path":        "pins:\n  - pin: 1\n",
		"sentinel pin":      "pins:\n  - path: /a\n    pin: 255\n",
		"overflow pin":      "pins:\n  - path: /a\n    pin: 300\n",
		"bad edge":          "pins:\n  - path: /a\n    pin: 1\n    edge: sideways\n",
		"duplicate pin":     "pins:\n  - path: /a\n    pin: 1\n  - path: /b\n    pin: 1\n",
		"duplicate path":    "pins:\n  - path: /a\n    pin: 1\n  - path: /a\n    pin: 2\n",
		"not yaml":          "pins: [\n",
		"empty":             "  \n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := control.ParseWatchConfig([]byte(doc))
			assert.Error(t, err)
		})
	}

	_, err := control.ParseWatchConfig([]byte("pins:\n  - path: /a\n    pin: 1\n  - path: /b\n    pin: 1\n"))
	assert.True(t, api.IsCode(err, api.ErrCodeInvalidArgument))
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestLoadWatchConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pins.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	cfg, err := control.LoadWatchConfig(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Pins, 2)

	out, err := cfg.Marshal()
	require.NoError(t, err)
	again, err := control.ParseWatchConfig(out)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)

	_, err = control.LoadWatchConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfigStoreListeners(t *testing.T) {
	first := &control.WatchConfig{Capacity: 1}
	store := control.NewConfigStore(first)
	assert.Same(t, first, store.GetSnapshot())

	var seen []*control.WatchConfig
	store.OnReload(func(cfg *control.WatchConfig) { seen = append(seen, cfg) })

	second := &control.WatchConfig{Capacity: 2}
	store.SetConfig(second)
	assert.Same(t, second, store.GetSnapshot())
	require.Len(t, seen, 1)
	assert.Same(t, second, seen[0])
}

func TestConfigStoreListenerAddedDuringReload(t *testing.T) {
	store := control.NewConfigStore(&control.WatchConfig{Capacity: 1})

	var calls []string
	store.OnReload(func(*control.WatchConfig) {
		calls = append(calls, "outer")
		store.OnReload(func(*control.WatchConfig) { calls = append(calls, "inner") })
	})

	store.SetConfig(&control.WatchConfig{Capacity: 2})
	assert.Equal(t, []string{"outer"}, calls, "a listener added during a reload waits for the next one")

	store.SetConfig(&control.WatchConfig{Capacity: 3})
	assert.Equal(t, []string{"outer", "outer", "inner"}, calls)
}

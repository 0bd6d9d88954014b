// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Watch configuration: which sysfs GPIO value files to watch and under
// which pin tag, plus a thread-safe store with reload propagation.

package control

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/momentics/pinselect/api"
	"github.com/momentics/pinselect/gpio"
	"gopkg.in/yaml.v3"
)

// DefaultCapacity is the reactor event buffer depth used when unset.
const DefaultCapacity = 16

// Edge values accepted by the sysfs GPIO "edge" attribute.
var validEdges = map[string]bool{
	"":        true,
	"none":    true,
	"rising":  true,
	"falling": true,
	"both":    true,
}

// PinConfig describes one watched line.
type PinConfig struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
	Pin  uint8  `yaml:"pin"`
	Edge string `yaml:"edge,omitempty"`
}

// EdgePath is the sysfs "edge" attribute next to the value file.
func (p PinConfig) EdgePath() string {
	return filepath.Join(filepath.Dir(p.Path), "edge")
}

// WatchConfig is the pinwatch configuration document.
type WatchConfig struct {
	Capacity int         `yaml:"capacity"`
	LogLevel string      `yaml:"log_level"`
	Pins     []PinConfig `yaml:"pins"`
}

// ParseWatchConfig decodes and validates a YAML document.
func ParseWatchConfig(data []byte) (*WatchConfig, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, invalid("empty document")
	}
	var cfg WatchConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse watch config: %w", err)
	}
	if cfg.Capacity == 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadWatchConfig reads and parses the file at path.
func LoadWatchConfig(path string) (*WatchConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read watch config: %w", err)
	}
	return ParseWatchConfig(data)
}

// Validate checks pin uniqueness and ranges.
func (c *WatchConfig) Validate() error {
	if c.Capacity < 1 {
		return invalid("capacity must be positive").WithContext("capacity", c.Capacity)
	}
	pins := make(map[uint8]string, len(c.Pins))
	paths := make(map[string]bool, len(c.Pins))
	for i, p := range c.Pins {
		switch {
		case p.Path == "":
			return invalid("pin path is empty").WithContext("index", i)
		case p.Pin > gpio.MaxPin:
			return invalid("pin tag out of range").WithContext("pin", p.Pin)
		case !validEdges[p.Edge]:
			return invalid("unknown edge").WithContext("edge", p.Edge)
		case paths[p.Path]:
			return invalid("duplicate path").WithContext("path", p.Path)
		}
		if other, dup := pins[p.Pin]; dup {
			return invalid("duplicate pin tag").WithContext("pin", p.Pin).WithContext("other", other)
		}
		pins[p.Pin] = p.Path
		paths[p.Path] = true
	}
	return nil
}

// Marshal encodes the configuration back to YAML.
func (c *WatchConfig) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func invalid(msg string) *api.Error {
	e := api.NewError(api.ErrCodeInvalidArgument, "watch config: "+msg)
	e.Err = api.ErrInvalidArgument
	return e
}

// ConfigStore holds the current configuration snapshot and notifies
// listeners when it is replaced.
type ConfigStore struct {
	mu        sync.RWMutex
	config    *WatchConfig
	listeners []func(*WatchConfig)
}

// NewConfigStore initializes a store with an initial snapshot.
func NewConfigStore(initial *WatchConfig) *ConfigStore {
	return &ConfigStore{config: initial}
}

// GetSnapshot returns the current configuration. Callers must not modify it.
func (cs *ConfigStore) GetSnapshot() *WatchConfig {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.config
}

// SetConfig replaces the snapshot and invokes listeners synchronously,
// in registration order.
func (cs *ConfigStore) SetConfig(cfg *WatchConfig) {
	cs.mu.Lock()
	cs.config = cfg
	listeners := slices.Clone(cs.listeners)
	cs.mu.Unlock()

	for _, fn := range listeners {
		fn(cfg)
	}
}

// OnReload registers a listener hook called on config changes.
func (cs *ConfigStore) OnReload(fn func(*WatchConfig)) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}

// File: gpio/options.go
// Author: momentics <momentics@gmail.com>

package gpio

import (
	"github.com/momentics/pinselect/api"
	"github.com/momentics/pinselect/internal/log"
	"github.com/sirupsen/logrus"
)

// selectOptions holds configuration options for Select creation.
type selectOptions struct {
	logger       *logrus.Entry
	mux          api.Multiplexer
	signal       api.WakeupSignal
	lockOSThread bool
}

// Option configures a Select instance.
type Option interface {
	applySelect(*selectOptions) error
}

// selectOptionImpl implements Option.
type selectOptionImpl struct {
	applySelectFunc func(*selectOptions) error
}

func (o *selectOptionImpl) applySelect(opts *selectOptions) error {
	return o.applySelectFunc(opts)
}

// WithLogger sets the logger used by the handle and its worker.
func WithLogger(logger *logrus.Entry) Option {
	return &selectOptionImpl{func(opts *selectOptions) error {
		if logger == nil {
			return api.NewError(api.ErrCodeInvalidArgument, "select: nil logger")
		}
		opts.logger = logger
		return nil
	}}
}

// WithLockOSThread sets whether the worker goroutine is locked to its OS
// thread for its whole life. Enabled by default.
func WithLockOSThread(enabled bool) Option {
	return &selectOptionImpl{func(opts *selectOptions) error {
		opts.lockOSThread = enabled
		return nil
	}}
}

// WithMultiplexer replaces the platform multiplexer. New takes ownership
// and closes it when the worker exits or construction fails.
func WithMultiplexer(mux api.Multiplexer) Option {
	return &selectOptionImpl{func(opts *selectOptions) error {
		opts.mux = mux
		return nil
	}}
}

// WithWakeupSignal replaces the platform wakeup signal. New takes
// ownership and closes it on Stop or when construction fails.
func WithWakeupSignal(signal api.WakeupSignal) Option {
	return &selectOptionImpl{func(opts *selectOptions) error {
		opts.signal = signal
		return nil
	}}
}

// resolveSelectOptions applies Option instances to selectOptions.
func resolveSelectOptions(opts []Option) (*selectOptions, error) {
	cfg := &selectOptions{
		logger:       log.NewLogger("select"),
		lockOSThread: true,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applySelect(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

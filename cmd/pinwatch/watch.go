package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/momentics/pinselect/control"
	"github.com/momentics/pinselect/gpio"
	"github.com/momentics/pinselect/internal/log"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newWatchCommand() *cobra.Command {
	var (
		statsInterval time.Duration
		noReload      bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Log edges on the configured lines until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, path, statsInterval, !noReload)
		},
	}
	cmd.Flags().DurationVar(&statsInterval, "stats-interval", 0, "log reactor counters at this interval (0 disables)")
	cmd.Flags().BoolVar(&noReload, "no-reload", false, "do not reload the configuration when the file changes")
	return cmd
}

func runWatch(ctx context.Context, path string, statsInterval time.Duration, reload bool) error {
	cfg, err := control.LoadWatchConfig(path)
	if err != nil {
		return err
	}
	if err := log.ParseLevel(cfg.LogLevel); err != nil {
		return err
	}
	logger := log.NewLogger("pinwatch")

	sel, err := gpio.New(cfg.Capacity, gpio.WithLogger(log.NewLogger("select")))
	if err != nil {
		return err
	}
	defer sel.Stop()

	w := newWatcher(sel, logger)
	defer w.stop()

	// the reloader must be gone before the watcher and the reactor stop
	var background errgroup.Group
	defer background.Wait()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	store := control.NewConfigStore(cfg)
	store.OnReload(func(next *control.WatchConfig) {
		if err := log.ParseLevel(next.LogLevel); err != nil {
			logger.WithError(err).Warn("ignoring log level")
		}
		if next.Capacity != cfg.Capacity {
			logger.WithField("capacity", next.Capacity).Warn("capacity change needs a restart")
		}
		w.apply(ctx, next.Pins)
	})
	w.apply(ctx, cfg.Pins)

	if reload {
		reloader := control.NewReloader(path, store, logger)
		background.Go(func() error {
			if err := reloader.Run(ctx); err != nil {
				logger.WithError(err).Warn("config reload disabled")
			}
			return nil
		})
	}

	metrics := control.NewMetricsRegistry()
	var tick <-chan time.Time
	if statsInterval > 0 {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-tick:
			metrics.PublishStats("select", sel.Stats())
			logger.WithFields(metrics.Fields()).Info("stats")
		case <-sel.Done():
			return fmt.Errorf("reactor stopped: %w", sel.Err())
		case <-ctx.Done():
			w.stop()
			sel.Stop()
			metrics.PublishStats("select", sel.Stats())
			logger.WithFields(metrics.Fields()).Info("stopped")
			return nil
		}
	}
}

// watcher runs one goroutine per configured line.
type watcher struct {
	sel *gpio.Select
	log *logrus.Entry

	// readValue reads the current line value; sysfs needs a read at
	// offset 0 to re-arm the edge notification.
	readValue func(f *os.File) (string, error)

	mu     sync.Mutex
	cancel context.CancelFunc
	lines  *errgroup.Group
}

func newWatcher(sel *gpio.Select, logger *logrus.Entry) *watcher {
	return &watcher{sel: sel, log: logger, readValue: preadValue}
}

// apply replaces the running line set.
func (w *watcher) apply(parent context.Context, pins []control.PinConfig) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopLocked()
	ctx, cancel := context.WithCancel(parent)
	w.cancel = cancel
	w.lines = new(errgroup.Group)

	// a failing line is logged and does not stop the others
	for _, p := range pins {
		w.lines.Go(func() error {
			entry := w.log.WithField("pin", p.Pin).WithField("name", p.Name)
			if err := w.watchPin(ctx, p, entry); err != nil {
				entry.WithError(err).Error("line watch stopped")
			}
			return nil
		})
	}
	w.log.WithField("lines", len(pins)).Info("watching")
}

func (w *watcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopLocked()
}

func (w *watcher) stopLocked() {
	if w.cancel != nil {
		w.cancel()
		_ = w.lines.Wait()
		w.cancel = nil
	}
}

func (w *watcher) watchPin(ctx context.Context, p control.PinConfig, entry *logrus.Entry) error {
	if p.Edge != "" {
		if err := os.WriteFile(p.EdgePath(), []byte(p.Edge), 0); err != nil {
			return fmt.Errorf("set edge: %w", err)
		}
	}
	f, err := os.Open(p.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	value, err := w.readValue(f)
	if err != nil {
		return err
	}
	entry.WithField("value", value).Debug("initial value")

	fd := int(f.Fd())
	for {
		err := w.sel.WaitReady(ctx, fd, p.Pin)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled):
			return nil
		default:
			return err
		}
		value, err := w.readValue(f)
		if err != nil {
			return err
		}
		entry.WithField("value", value).Info("edge")
	}
}

func preadValue(f *os.File) (string, error) {
	var buf [16]byte
	n, err := f.ReadAt(buf[:], 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(string(buf[:n])), nil
}

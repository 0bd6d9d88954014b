//go:build linux
// +build linux

package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/momentics/pinselect/control"
	"github.com/momentics/pinselect/gpio"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestWatcherLogsEdgesFromFifo(t *testing.T) {
	fifo := filepath.Join(t.TempDir(), "value")
	require.NoError(t, unix.Mkfifo(fifo, 0o600))

	// holding a read-write end keeps the watcher's open from blocking
	writer, err := os.OpenFile(fifo, os.O_RDWR, 0)
	require.NoError(t, err)
	defer writer.Close()

	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	logger := logrus.NewEntry(quiet)

	sel, err := gpio.New(4, gpio.WithLogger(logger))
	require.NoError(t, err)
	defer sel.Stop()

	reads := make(chan string, 4)
	first := true
	w := newWatcher(sel, logger)
	w.readValue = func(f *os.File) (string, error) {
		// the fifo is empty before the first edge
		if first {
			first = false
			reads <- "initial"
			return "0", nil
		}
		var buf [1]byte
		n, err := f.Read(buf[:])
		if err != nil {
			return "", err
		}
		v := string(buf[:n])
		reads <- v
		return v, nil
	}
	defer w.stop()

	w.apply(context.Background(), []control.PinConfig{{Name: "fifo", Path: fifo, Pin: 3}})
	require.Equal(t, "initial", recv(t, reads))

	_, err = writer.Write([]byte("1"))
	require.NoError(t, err)
	require.Equal(t, "1", recv(t, reads))

	_, err = writer.Write([]byte("0"))
	require.NoError(t, err)
	require.Equal(t, "0", recv(t, reads))
}

func recv(t *testing.T, c <-chan string) string {
	t.Helper()
	select {
	case v := <-c:
		return v
	case <-time.After(3 * time.Second):
		t.Fatal("no read")
		return ""
	}
}

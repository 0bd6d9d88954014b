// File: internal/log/logrus.go
// Author: momentics <momentics@gmail.com>
//
// Tagged logrus loggers shared by the reactor and the pinwatch tool.

package log

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

var std = newStd()

func newStd() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	l.AddHook(new(TaggedHook))
	return l
}

// NewLogger returns an entry whose messages are prefixed with "[tag]: ".
func NewLogger(tag string) *logrus.Entry {
	return logrus.NewEntry(std).WithField("tag", tag)
}

// SetLevel changes the level of every logger created by NewLogger.
func SetLevel(level logrus.Level) {
	std.SetLevel(level)
}

// ParseLevel sets the level by name ("debug", "info", ...).
func ParseLevel(name string) error {
	level, err := logrus.ParseLevel(name)
	if err != nil {
		return err
	}
	std.SetLevel(level)
	return nil
}

// SetOutput redirects every logger created by NewLogger.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// TaggedHook moves the "tag" field into the message prefix.
type TaggedHook struct{}

func (h *TaggedHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *TaggedHook) Fire(entry *logrus.Entry) error {
	if tagObj, loaded := entry.Data["tag"]; loaded {
		tag, _ := tagObj.(string)
		delete(entry.Data, "tag")
		entry.Message = strings.ReplaceAll(entry.Message, tag+": ", "")
		entry.Message = "[" + tag + "]: " + entry.Message
	}
	return nil
}

// Package logging provides the observational Logger the session calls
// into, plus a colored console implementation and a broadcast sink so
// a CLI and any other listener can watch the same stream.
package logging

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/gmflash/pcmflash/pkg/sink"
)

// Logger is purely observational: the session never branches on
// whether a call succeeded.
type Logger interface {
	User(msg string)
	Debug(msg string)
}

// ConsoleLogger writes user lines in plain text and debug lines dimmed,
// and also broadcasts every line through a sink.Manager so other
// listeners (a future UI, a log file) can subscribe independently.
type ConsoleLogger struct {
	mgr     *sink.Manager
	debug   bool
	dimmed  *color.Color
	userFmt *color.Color
}

// NewConsoleLogger returns a ConsoleLogger backed by mgr. debugEnabled
// controls whether Debug lines reach the console; they are always
// pushed to the sink regardless.
func NewConsoleLogger(mgr *sink.Manager, debugEnabled bool) *ConsoleLogger {
	return &ConsoleLogger{
		mgr:     mgr,
		debug:   debugEnabled,
		dimmed:  color.New(color.FgHiBlack),
		userFmt: color.New(color.FgHiWhite),
	}
}

func (l *ConsoleLogger) User(msg string) {
	l.userFmt.Println(msg)
	l.publish(sink.LevelUser, msg)
}

func (l *ConsoleLogger) Debug(msg string) {
	if l.debug {
		l.dimmed.Println(msg)
	}
	l.publish(sink.LevelDebug, msg)
}

func (l *ConsoleLogger) publish(level sink.Level, msg string) {
	if l.mgr == nil {
		return
	}
	_ = l.mgr.Push(&sink.Entry{Level: level, Text: msg})
}

// Userf and Debugf are fmt.Sprintf-formatted convenience wrappers
// around any Logger.
func Userf(l Logger, format string, args ...any)  { l.User(fmt.Sprintf(format, args...)) }
func Debugf(l Logger, format string, args ...any) { l.Debug(fmt.Sprintf(format, args...)) }

// NopLogger discards everything. Useful as the default when no
// WithLogger option is supplied.
type NopLogger struct{}

func (NopLogger) User(string)  {}
func (NopLogger) Debug(string) {}

package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// FileLogger writes every User and Debug line as a structured logrus
// entry, for a persistent session transcript distinct from the
// console's human-facing rendering. Debug lines are tagged at
// DebugLevel so a quieter log file can filter them out by level alone.
type FileLogger struct {
	entry *logrus.Entry
}

// NewFileLogger returns a FileLogger writing JSON lines to w.
func NewFileLogger(w io.Writer) *FileLogger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(logrus.DebugLevel)
	return &FileLogger{entry: l.WithField("component", "pcmsession")}
}

func (f *FileLogger) User(msg string)  { f.entry.Info(msg) }
func (f *FileLogger) Debug(msg string) { f.entry.Debug(msg) }

// multiLogger fans a single call out to every wrapped Logger, letting
// a session write to the console and a log file at once.
type multiLogger struct {
	loggers []Logger
}

// Multi combines loggers into one Logger that forwards every call to
// all of them.
func Multi(loggers ...Logger) Logger {
	return &multiLogger{loggers: loggers}
}

func (m *multiLogger) User(msg string) {
	for _, l := range m.loggers {
		l.User(msg)
	}
}

func (m *multiLogger) Debug(msg string) {
	for _, l := range m.loggers {
		l.Debug(msg)
	}
}

// Package logging provides the standard-library-backed implementation of
// application.Logger.
package logging

import (
	"io"
	"log"
	"os"
)

// LogLogger wraps the standard log package. It is the only Logger
// implementation this module ships; nothing here reaches for a
// structured-logging library.
type LogLogger struct {
	*log.Logger
}

// NewLogLogger builds a LogLogger writing to w with a timestamp prefix. A
// nil w defaults to os.Stderr.
func NewLogLogger(w io.Writer) *LogLogger {
	if w == nil {
		w = os.Stderr
	}
	return &LogLogger{Logger: log.New(w, "", log.LstdFlags)}
}

// Printf satisfies application.Logger.
func (l *LogLogger) Printf(format string, v ...any) {
	l.Logger.Printf(format, v...)
}

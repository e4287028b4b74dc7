package logmanager

import (
	"fmt"
	"io"
	"log"
)

// Logger is a leveled wrapper around log.Logger. All methods are safe to
// call on a nil *Logger.
type Logger struct {
	base  *log.Logger
	debug bool
}

// NewLogger wraps an existing stdlib logger.
func NewLogger(base *log.Logger, debug bool) *Logger {
	return &Logger{base: base, debug: debug}
}

// Discard returns a logger that writes nothing.
func Discard() *Logger {
	return &Logger{base: log.New(io.Discard, "", 0)}
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	if l == nil || !l.debug {
		return
	}
	l.output("DEBUG", format, args...)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.output("INFO", format, args...)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.output("WARN", format, args...)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.output("ERROR", format, args...)
}

// Standard exposes the wrapped logger for libraries that want one.
func (l *Logger) Standard() *log.Logger {
	if l == nil {
		return nil
	}
	return l.base
}

func (l *Logger) output(level, format string, args ...interface{}) {
	if l == nil || l.base == nil {
		return
	}

	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	l.base.Println(level + " " + msg)
}

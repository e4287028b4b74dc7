package logmanager

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

type Options struct {
	// FilePath is the log file appended to when EnableFile is set.
	FilePath   string
	EnableFile bool
	Debug      bool
	// Stdout receives every line. Defaults to os.Stdout.
	Stdout io.Writer
}

func DefaultOptions() Options {
	path := os.Getenv("LOG_FILE")
	return Options{
		FilePath:   path,
		EnableFile: path != "",
		Stdout:     os.Stdout,
	}
}

// Manager owns the log file and the base logger writing to it.
type Manager struct {
	file   *os.File
	base   *log.Logger
	logger *Logger
}

func New(opts Options) (*Manager, error) {
	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}

	var file *os.File
	if opts.EnableFile && opts.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.FilePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		file = f
		out = io.MultiWriter(out, f)
	}

	base := log.New(out, "", log.LstdFlags|log.Lmicroseconds)
	return &Manager{
		file:   file,
		base:   base,
		logger: &Logger{base: base, debug: opts.Debug},
	}, nil
}

// Logger returns the leveled logger shared by all components.
func (m *Manager) Logger() *Logger {
	if m == nil {
		return nil
	}
	return m.logger
}

// Standard returns the underlying stdlib logger.
func (m *Manager) Standard() *log.Logger {
	if m == nil {
		return nil
	}
	return m.base
}

func (m *Manager) Close() error {
	if m == nil || m.file == nil {
		return nil
	}
	if err := m.file.Sync(); err != nil {
		m.file.Close()
		return fmt.Errorf("failed to sync log file: %w", err)
	}
	return m.file.Close()
}

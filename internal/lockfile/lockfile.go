// Package lockfile guards against two agents running on one host.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrLocked is returned when another process holds the lock.
var ErrLocked = errors.New("lock file is held by another process")

// Lock is a held PID file.
type Lock struct {
	path string
	file *os.File
}

// Acquire creates path, locks it exclusively and writes the current PID
// into it.
func Acquire(path string) (*Lock, error) {
	file, err := openLocked(path)
	if err != nil {
		return nil, err
	}

	pid := strconv.Itoa(os.Getpid())
	if err := file.Truncate(0); err != nil {
		file.Close()
		return nil, fmt.Errorf("truncate %s: %w", path, err)
	}
	if _, err := file.WriteAt([]byte(pid+"\n"), 0); err != nil {
		file.Close()
		return nil, fmt.Errorf("write pid to %s: %w", path, err)
	}
	return &Lock{path: path, file: file}, nil
}

func (l *Lock) Path() string { return l.path }

// Release removes the PID file and drops the lock.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	removeErr := os.Remove(l.path)
	closeErr := l.file.Close()
	l.file = nil
	if removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
		return removeErr
	}
	return closeErr
}

// ReadPID returns the PID recorded in path.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

package store

import (
	"errors"
	"fmt"
)

// ConnectionError reports that the database could not be reached.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("database connection: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// WriteError reports a failed write. The transaction it belonged to has
// been rolled back.
type WriteError struct {
	Table string
	Err   error
}

func (e *WriteError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("write: %v", e.Err)
	}
	return fmt.Sprintf("write %s: %v", e.Table, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ReadError reports a failed query against one table.
type ReadError struct {
	Table string
	Err   error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Table, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// IsConnection reports whether err is or wraps a ConnectionError.
func IsConnection(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

// IsWrite reports whether err is or wraps a WriteError.
func IsWrite(err error) bool {
	var we *WriteError
	return errors.As(err, &we)
}

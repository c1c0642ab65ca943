// Package apperr defines the error taxonomy shared across the application.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSpec marks a rename spec rejected before the filesystem is touched.
	ErrInvalidSpec = errors.New("invalid rename spec")

	// ErrConflict marks a rename whose target path already exists.
	ErrConflict = errors.New("rename target already exists")
)

// IOError wraps a filesystem failure with the operation and the offending path.
type IOError struct {
	Op   string // "stat", "read", "write", "rename" or "walk"
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

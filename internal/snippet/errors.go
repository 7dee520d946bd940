package snippet

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a snippet directory or its metadata
	// does not exist.
	ErrNotFound = errors.New("snippet not found")

	// ErrInvalid is returned for save or insert input that cannot be
	// processed.
	ErrInvalid = errors.New("invalid snippet input")
)

// FilesystemError wraps a read or write failure inside the repository or
// on an insertion target.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

func fsErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &FilesystemError{Op: op, Path: path, Err: err}
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

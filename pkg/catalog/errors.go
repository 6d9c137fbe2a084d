package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when inserting an id that already exists.
	ErrConflict = errors.New("already exists")
)

// StorageError wraps a failure of the underlying engine or record codec.
type StorageError struct {
	Collection string
	Op         string
	Err        error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Collection, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

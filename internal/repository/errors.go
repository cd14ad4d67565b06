// Package repository defines error types that are reused across the
// patient store and repository.  These sentinel values allow higher layers
// such as handlers to distinguish between different failure scenarios:
// ErrPatientNotFound maps to 404, ErrDuplicateID to 400, and a
// *StorageError to a 500 because the backing file could not be used.
package repository

import (
    "errors"
    "fmt"
)

// ErrPatientNotFound is returned when no record exists under the requested id.
var ErrPatientNotFound = errors.New("patient not found")

// ErrDuplicateID is returned by Create when the id is already taken.
var ErrDuplicateID = errors.New("patient id already exists")

// StorageError wraps a failure to read, parse or write the backing store.
type StorageError struct {
    Op   string // "load" or "save"
    Path string // backing location, empty for in-memory stores
    Err  error
}

func (e *StorageError) Error() string {
    if e.Path == "" {
        return fmt.Sprintf("store %s: %v", e.Op, e.Err)
    }
    return fmt.Sprintf("store %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an operation requires a post or author that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrSourceUnavailable wraps failures of the content source.
	ErrSourceUnavailable = errors.New("content source unavailable")
	// ErrStoreUnavailable wraps failures of the persistent store.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrInvalidState marks an action on a post whose upstream state forbids it.
	ErrInvalidState = errors.New("invalid state")
)

// PartialFailureError reports a multi-step operation whose earlier steps committed.
type PartialFailureError struct {
	Step string
	Err  error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("partial failure at %s: %v", e.Step, e.Err)
}

func (e *PartialFailureError) Unwrap() error {
	return e.Err
}

package store

import (
	"errors"
	"fmt"
)

// ErrRecordNotFound is returned (wrapped) by Load when no record exists.
var ErrRecordNotFound = errors.New("record not found")

// PersistenceError wraps a durable read or write failure.
//
// Op is one of "load", "save" or "list". ID is empty for "list".
type PersistenceError struct {
	Op  string
	ID  string
	Err error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
}

// Unwrap returns the underlying cause.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// InvalidIDError reports a participant id that cannot be used as a key.
type InvalidIDError struct {
	ID     string
	Reason string
}

func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("invalid participant id %q: %s", e.ID, e.Reason)
}

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}

// IsPersistenceError reports whether err is a durable read/write failure
// other than a missing record.
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe) && !IsNotFound(err)
}

// IsInvalidID reports whether err is an id validation failure.
func IsInvalidID(err error) bool {
	var ie *InvalidIDError
	return errors.As(err, &ie)
}

func notFound(id string) error {
	return &PersistenceError{Op: "load", ID: id, Err: ErrRecordNotFound}
}

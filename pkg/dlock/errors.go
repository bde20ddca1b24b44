package dlock

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned by the run-under-lock helpers when the lock
	// could not be acquired within the wait bound.
	ErrTimeout = errors.New("dlock: acquire timeout")

	// ErrNotOwner is returned when releasing a lock whose record belongs to
	// another holder (the lease expired and was taken, or it was never held).
	ErrNotOwner = errors.New("dlock: lock not owned by this holder")

	// ErrInvalidLease is returned for leases shorter than one millisecond.
	ErrInvalidLease = errors.New("dlock: lease must be at least 1ms")

	// ErrMalformedRecord is returned when a key holds something that is not
	// a lock record.
	ErrMalformedRecord = errors.New("dlock: malformed lock record")
)

// StoreError reports a failure talking to the store or running a script.
// It is never used for contention.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("dlock: %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeError(op, key string, err error) error {
	return &StoreError{Op: op, Key: key, Err: err}
}

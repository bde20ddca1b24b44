package client

import (
	"errors"
	"fmt"

	"dlock-service/pkg/dlock"
)

var (
	// ErrNotFound is returned when the lock is not held by anyone.
	ErrNotFound = errors.New("client: lock not found")

	// ErrLeaseLost is returned by Renew when the holder no longer owns the lock.
	ErrLeaseLost = errors.New("client: lease lost")

	// ErrAuditDisabled is returned by Events when the server keeps no event log.
	ErrAuditDisabled = errors.New("client: audit log disabled")
)

// APIError is a non-2xx answer from the lock service.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("lock service returned status %d", e.Status)
	}

	return fmt.Sprintf("lock service returned status %d: %s (%s)", e.Status, e.Message, e.Code)
}

// Unwrap maps service error codes onto sentinels so callers can use errors.Is.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "LOCK_TIMEOUT":
		return dlock.ErrTimeout
	case "NOT_OWNER":
		return dlock.ErrNotOwner
	case "LEASE_LOST":
		return ErrLeaseLost
	case "LOCK_NOT_FOUND":
		return ErrNotFound
	case "AUDIT_DISABLED":
		return ErrAuditDisabled
	}

	return nil
}

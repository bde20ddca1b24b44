// Package domain contains the lock service's entities and ports.
// This package has no external dependencies (only stdlib).
package domain

import (
	"errors"
	"time"
)

// ErrLockNotFound is returned when a lock key has no record in the store.
var ErrLockNotFound = errors.New("lock not found")

// LockState is a snapshot of one lock record as seen in the store.
type LockState struct {
	Key    string `json:"key"`    // Store key, including any prefix
	Name   string `json:"name"`   // Key without the service prefix
	Holder string `json:"holder"` // Holder token of the owner
	Count  int    `json:"count"`  // Reentrancy count

	// ExpireAt is the lease deadline recorded by the last ACQUIRE or RENEW.
	ExpireAt time.Time `json:"expire_at"`
	// TTL is the key's remaining time to live when the snapshot was taken.
	TTL time.Duration `json:"ttl"`
}

// Reentrant reports whether the holder has acquired the lock more than once.
func (s *LockState) Reentrant() bool {
	return s.Count > 1
}

// HeldBy reports whether holder owns the lock.
func (s *LockState) HeldBy(holder string) bool {
	return holder != "" && s.Holder == holder
}

// Remaining returns the lease time left relative to now, never negative.
func (s *LockState) Remaining(now time.Time) time.Duration {
	d := s.ExpireAt.Sub(now)
	if d < 0 {
		return 0
	}

	return d
}

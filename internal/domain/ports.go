package domain

import (
	"context"
	"time"
)

// EventRepository persists the lock audit log.
// Implementations: internal/infra/postgres/event_repository.go
type EventRepository interface {
	// Record appends an event and sets its ID.
	Record(ctx context.Context, event *LockEvent) error

	// ListByKey returns the newest events for a key, newest first.
	ListByKey(ctx context.Context, key string, limit int) ([]*LockEvent, error)

	// PurgeBefore deletes events created before cutoff and returns how many.
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Count returns the number of stored events.
	Count(ctx context.Context) (int64, error)
}

// LockInspector reads lock records straight from the store.
// Implementations: internal/infra/redis/inspector.go
type LockInspector interface {
	// Get returns the state of one lock, or ErrLockNotFound.
	Get(ctx context.Context, name string) (*LockState, error)

	// List returns every lock held under the service prefix.
	List(ctx context.Context) ([]*LockState, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
}

package domain

import (
	"fmt"
	"time"
)

// EventType is the outcome of a lock operation recorded in the audit log.
type EventType string

const (
	EventAcquired  EventType = "acquired"
	EventTimeout   EventType = "timeout"
	EventReleased  EventType = "released"
	EventNotOwner  EventType = "not_owner"
	EventRenewed   EventType = "renewed"
	EventLeaseLost EventType = "lease_lost"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventAcquired, EventTimeout, EventReleased, EventNotOwner, EventRenewed, EventLeaseLost:
		return true
	default:
		return false
	}
}

// LockEvent is one audit log entry.
type LockEvent struct {
	ID        int64         `json:"id"`
	Key       string        `json:"key"`
	Holder    string        `json:"holder"`
	Type      EventType     `json:"type"`
	Count     int           `json:"count,omitempty"` // Reentrancy count after an acquire
	Lease     time.Duration `json:"lease,omitempty"`
	Wait      time.Duration `json:"wait,omitempty"` // Time spent polling, acquire only
	CreatedAt time.Time     `json:"created_at"`
}

// NewLockEvent creates an event stamped with the current time.
func NewLockEvent(key, holder string, typ EventType) (*LockEvent, error) {
	if key == "" {
		return nil, fmt.Errorf("lock event: empty key")
	}
	if !typ.Valid() {
		return nil, fmt.Errorf("lock event: unknown type %q", typ)
	}

	return &LockEvent{
		Key:       key,
		Holder:    holder,
		Type:      typ,
		CreatedAt: time.Now().UTC(),
	}, nil
}

package postgres

import (
	"time"

	"dlock-service/internal/domain"
)

// EventModel is the GORM model for the lock_events table.
type EventModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	LockKey   string    `gorm:"type:varchar(255);not null;index:idx_lock_events_key_created,priority:1"`
	Holder    string    `gorm:"type:varchar(255);not null"`
	Type      string    `gorm:"type:varchar(20);not null"`
	Count     int       `gorm:"default:0"`
	LeaseMs   int64     `gorm:"default:0"`
	WaitMs    int64     `gorm:"default:0"`
	CreatedAt time.Time `gorm:"not null;index;index:idx_lock_events_key_created,priority:2,sort:desc"`
}

// TableName returns the table name for EventModel.
func (EventModel) TableName() string {
	return "lock_events"
}

// ToDomain converts EventModel to domain.LockEvent.
func (m *EventModel) ToDomain() *domain.LockEvent {
	return &domain.LockEvent{
		ID:        m.ID,
		Key:       m.LockKey,
		Holder:    m.Holder,
		Type:      domain.EventType(m.Type),
		Count:     m.Count,
		Lease:     time.Duration(m.LeaseMs) * time.Millisecond,
		Wait:      time.Duration(m.WaitMs) * time.Millisecond,
		CreatedAt: m.CreatedAt,
	}
}

// FromDomain creates an EventModel from domain.LockEvent.
func FromDomain(e *domain.LockEvent) *EventModel {
	return &EventModel{
		ID:        e.ID,
		LockKey:   e.Key,
		Holder:    e.Holder,
		Type:      string(e.Type),
		Count:     e.Count,
		LeaseMs:   e.Lease.Milliseconds(),
		WaitMs:    e.Wait.Milliseconds(),
		CreatedAt: e.CreatedAt,
	}
}

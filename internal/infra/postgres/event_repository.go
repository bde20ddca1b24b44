package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"dlock-service/internal/domain"
)

// maxListLimit caps ListByKey.
const maxListLimit = 500

// EventRepository implements domain.EventRepository using PostgreSQL.
type EventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new lock event repository.
func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Record appends an event and sets event.ID.
func (r *EventRepository) Record(ctx context.Context, event *domain.LockEvent) error {
	model := FromDomain(event)
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("recording lock event: %w", err)
	}

	event.ID = model.ID
	event.CreatedAt = model.CreatedAt

	return nil
}

// ListByKey returns up to limit events for key, newest first. A limit outside
// 1..500 is clamped.
func (r *EventRepository) ListByKey(ctx context.Context, key string, limit int) ([]*domain.LockEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var models []EventModel
	err := r.db.WithContext(ctx).
		Where("lock_key = ?", key).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("listing lock events: %w", err)
	}

	events := make([]*domain.LockEvent, len(models))
	for i := range models {
		events[i] = models[i].ToDomain()
	}

	return events, nil
}

// PurgeBefore deletes events created before cutoff.
func (r *EventRepository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&EventModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("purging lock events: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// Count returns the number of stored events.
func (r *EventRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&EventModel{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("counting lock events: %w", err)
	}

	return total, nil
}

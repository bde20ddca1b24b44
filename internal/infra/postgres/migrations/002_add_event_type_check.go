package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// addEventTypeCheck restricts lock_events.type to the known outcomes.
func addEventTypeCheck() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "002_add_event_type_check",
		Migrate: func(tx *gorm.DB) error {
			return tx.Exec(`
				ALTER TABLE lock_events
				ADD CONSTRAINT chk_lock_events_type CHECK (
					type IN ('acquired', 'timeout', 'released', 'not_owner', 'renewed', 'lease_lost')
				)
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec(`ALTER TABLE lock_events DROP CONSTRAINT IF EXISTS chk_lock_events_type`).Error
		},
	}
}

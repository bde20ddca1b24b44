package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// createLockEventsTable creates the audit log table and its indexes.
func createLockEventsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "001_create_lock_events",
		Migrate: func(tx *gorm.DB) error {
			err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS lock_events (
					id BIGSERIAL PRIMARY KEY,
					lock_key VARCHAR(255) NOT NULL,
					holder VARCHAR(255) NOT NULL,
					type VARCHAR(20) NOT NULL,
					count INTEGER DEFAULT 0,
					lease_ms BIGINT DEFAULT 0,
					wait_ms BIGINT DEFAULT 0,
					created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
				);
			`).Error
			if err != nil {
				return err
			}

			indexes := []string{
				"CREATE INDEX IF NOT EXISTS idx_lock_events_key_created ON lock_events(lock_key, created_at DESC);",
				"CREATE INDEX IF NOT EXISTS idx_lock_events_created_at ON lock_events(created_at);",
			}
			for _, idx := range indexes {
				if err := tx.Exec(idx).Error; err != nil {
					return err
				}
			}

			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec("DROP TABLE IF EXISTS lock_events;").Error
		},
	}
}

package db

import (
	"encoding/json"
	"fmt"

	"github.com/zulandar/outreach/internal/config"
	"github.com/zulandar/outreach/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.TenantSettings{},
		&models.QueueItem{},
		&models.HistoryItem{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedTenants upserts TenantSettings rows from configuration. Run-owned
// columns (loop_status, last_run_at) are never touched.
func SeedTenants(db *gorm.DB, tenants []config.TenantConfig) error {
	for _, tc := range tenants {
		creds, err := marshalJSON(tc.Credentials)
		if err != nil {
			return fmt.Errorf("db: marshal credentials for tenant %q: %w", tc.Slug, err)
		}

		ts := models.TenantSettings{
			Slug:            tc.Slug,
			AutoRun:         tc.AutoRun,
			UseDispatcher:   tc.DispatcherEnabled(),
			DailyLimit:      tc.DailyLimit,
			Credentials:     creds,
			MessageTemplate: tc.MessageTemplate,
			LoopStatus:      models.LoopIdle,
		}

		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"auto_run", "use_dispatcher", "daily_limit", "credentials", "message_template", "updated_at"}),
		}).Create(&ts)
		if result.Error != nil {
			return fmt.Errorf("db: seed tenant %q: %w", tc.Slug, result.Error)
		}
	}
	return nil
}

// marshalJSON marshals a map to a JSON string, returning empty string for an empty map.
func marshalJSON(v map[string]string) (string, error) {
	if len(v) == 0 {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

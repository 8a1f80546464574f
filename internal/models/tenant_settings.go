package models

import "time"

// LoopStatus is the persisted run beacon for a tenant. It is written by the
// run coordinator for visibility after a crash; it is not the authority on
// whether a run is active.
type LoopStatus string

const (
	LoopIdle     LoopStatus = "idle"
	LoopRunning  LoopStatus = "running"
	LoopStopping LoopStatus = "stopping"
	LoopError    LoopStatus = "error"
)

// Valid reports whether s is one of the known loop statuses.
func (s LoopStatus) Valid() bool {
	switch s {
	case LoopIdle, LoopRunning, LoopStopping, LoopError:
		return true
	}
	return false
}

// Active reports whether the status claims a run is in progress.
func (s LoopStatus) Active() bool {
	return s == LoopRunning || s == LoopStopping
}

// TenantSettings holds per-tenant campaign configuration.
type TenantSettings struct {
	Slug            string     `gorm:"primaryKey;size:64"`
	AutoRun         bool       `gorm:"default:false;index"`
	UseDispatcher   bool       `gorm:"not null"`
	DailyLimit      int        `gorm:"default:0"`
	Credentials     string     `gorm:"type:text"` // opaque JSON, interpreted by the dispatcher
	MessageTemplate string     `gorm:"type:text"`
	LoopStatus      LoopStatus `gorm:"size:16;default:idle"`
	LastRunAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

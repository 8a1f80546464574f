package models

import "time"

// QueueItem is a contact waiting to be attempted for a tenant. Rows are
// created by ingestion and removed only by the run coordinator once an
// attempt has been resolved.
type QueueItem struct {
	ID        uint    `gorm:"primaryKey;autoIncrement"`
	Tenant    string  `gorm:"size:64;not null;uniqueIndex:idx_queue_tenant_phone;index:idx_queue_tenant_name"`
	Name      string  `gorm:"size:255;not null;index:idx_queue_tenant_name"`
	Phone     string  `gorm:"size:32;not null;uniqueIndex:idx_queue_tenant_phone"`
	Niche     *string `gorm:"size:128"`
	CreatedAt time.Time
}

package models

import "time"

// HistoryItem is the durable per-tenant ledger entry for a contact. Sent
// flips to true exactly when a dispatch for the contact succeeds; rows with
// Sent=true and UpdatedAt on the current day count against the daily quota.
type HistoryItem struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Tenant    string    `gorm:"size:64;not null;uniqueIndex:idx_history_tenant_phone;index:idx_history_sent"`
	Name      string    `gorm:"size:255"`
	Phone     string    `gorm:"size:32;not null;uniqueIndex:idx_history_tenant_phone"`
	Niche     *string   `gorm:"size:128"`
	Sent      bool      `gorm:"default:false;index:idx_history_sent"`
	UpdatedAt time.Time `gorm:"index:idx_history_sent"`
	CreatedAt time.Time
}

// Package store persists tenant queues, the contact history ledger, and
// tenant settings on GORM.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/outreach/internal/models"
	"gorm.io/gorm"
)

// ErrTenantNotFound is returned when no settings row exists for a slug.
var ErrTenantNotFound = errors.New("store: tenant not found")

// Contact is an inbound contact for Enqueue.
type Contact struct {
	Name  string
	Phone string
	Niche string
}

// Store wraps a GORM connection with the queue/history/settings operations
// the scheduler needs.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by db.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Settings loads a tenant's settings row.
func (s *Store) Settings(ctx context.Context, slug string) (*models.TenantSettings, error) {
	var ts models.TenantSettings
	err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&ts).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTenantNotFound, slug)
	}
	if err != nil {
		return nil, fmt.Errorf("store: load settings %s: %w", slug, err)
	}
	return &ts, nil
}

// SetLoopStatus writes the run beacon. lastRunAt is only written when non-nil.
func (s *Store) SetLoopStatus(ctx context.Context, slug string, status models.LoopStatus, lastRunAt *time.Time) error {
	if !status.Valid() {
		return fmt.Errorf("store: invalid loop status %q", status)
	}
	updates := map[string]interface{}{"loop_status": status}
	if lastRunAt != nil {
		updates["last_run_at"] = *lastRunAt
	}
	result := s.db.WithContext(ctx).Model(&models.TenantSettings{}).
		Where("slug = ?", slug).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("store: set loop status %s: %w", slug, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrTenantNotFound, slug)
	}
	return nil
}

// CompareAndSetLoopStatus moves the beacon from one of the given statuses
// to next. It reports whether a row was updated.
func (s *Store) CompareAndSetLoopStatus(ctx context.Context, slug string, from []models.LoopStatus, next models.LoopStatus) (bool, error) {
	result := s.db.WithContext(ctx).Model(&models.TenantSettings{}).
		Where("slug = ? AND loop_status IN ?", slug, from).
		Update("loop_status", next)
	if result.Error != nil {
		return false, fmt.Errorf("store: swap loop status %s: %w", slug, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// AutoRunTenants returns slugs flagged auto_run that have at least one
// queued contact, in slug order.
func (s *Store) AutoRunTenants(ctx context.Context) ([]string, error) {
	queued := s.db.Model(&models.QueueItem{}).
		Select("1").
		Where("queue_items.tenant = tenant_settings.slug")

	var slugs []string
	if err := s.db.WithContext(ctx).Model(&models.TenantSettings{}).
		Where("auto_run = ?", true).
		Where("EXISTS (?)", queued).
		Order("slug ASC").
		Pluck("slug", &slugs).Error; err != nil {
		return nil, fmt.Errorf("store: auto-run tenants: %w", err)
	}
	return slugs, nil
}

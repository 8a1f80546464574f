package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zulandar/outreach/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QueueSize counts the tenant's queued contacts.
func (s *Store) QueueSize(ctx context.Context, slug string) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.QueueItem{}).
		Where("tenant = ?", slug).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("store: queue size %s: %w", slug, err)
	}
	return n, nil
}

// ListQueue returns up to limit queued contacts in name order. limit <= 0
// returns all of them.
func (s *Store) ListQueue(ctx context.Context, slug string, limit int) ([]models.QueueItem, error) {
	q := s.db.WithContext(ctx).Where("tenant = ?", slug).Order("name ASC, phone ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var items []models.QueueItem
	if err := q.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("store: list queue %s: %w", slug, err)
	}
	return items, nil
}

// NextEligible returns the queued contact with the smallest name whose phone
// is not in exclude and whose history row is not already marked sent. It
// returns nil when nothing is eligible.
func (s *Store) NextEligible(ctx context.Context, slug string, exclude []string) (*models.QueueItem, error) {
	alreadySent := s.db.Model(&models.HistoryItem{}).
		Select("1").
		Where("history_items.tenant = queue_items.tenant AND history_items.phone = queue_items.phone AND history_items.sent = ?", true)

	q := s.db.WithContext(ctx).Model(&models.QueueItem{}).
		Where("queue_items.tenant = ?", slug).
		Where("NOT EXISTS (?)", alreadySent)
	if len(exclude) > 0 {
		q = q.Where("queue_items.phone NOT IN ?", exclude)
	}

	var items []models.QueueItem
	if err := q.Order("queue_items.name ASC, queue_items.phone ASC").Limit(1).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("store: next eligible %s: %w", slug, err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// Commit resolves one attempt in a single transaction: the contact leaves
// the queue, and when sent is true its history row is upserted to
// sent=true, updated_at=at. When sent is false history is left untouched.
func (s *Store) Commit(ctx context.Context, slug string, item models.QueueItem, sent bool, at time.Time) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tenant = ? AND phone = ?", slug, item.Phone).
			Delete(&models.QueueItem{}).Error; err != nil {
			return fmt.Errorf("dequeue %s: %w", item.Phone, err)
		}
		if !sent {
			return nil
		}

		h := models.HistoryItem{
			Tenant:    slug,
			Name:      item.Name,
			Phone:     item.Phone,
			Niche:     item.Niche,
			Sent:      true,
			UpdatedAt: at,
			CreatedAt: at,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant"}, {Name: "phone"}},
			DoUpdates: clause.AssignmentColumns([]string{"sent", "updated_at"}),
		}).Create(&h).Error; err != nil {
			return fmt.Errorf("mark sent %s: %w", item.Phone, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store: commit %s: %w", slug, err)
	}
	return nil
}

// Enqueue adds contacts to a tenant's queue. A history row (sent=false) is
// created the first time a phone is seen; phones already queued are
// skipped. It returns the number of contacts newly queued.
func (s *Store) Enqueue(ctx context.Context, slug string, contacts []Contact) (int, error) {
	added := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, c := range contacts {
			phone := strings.TrimSpace(c.Phone)
			if phone == "" {
				return fmt.Errorf("contact %q: phone is required", c.Name)
			}
			var niche *string
			if n := strings.TrimSpace(c.Niche); n != "" {
				niche = &n
			}
			name := strings.TrimSpace(c.Name)

			q := models.QueueItem{Tenant: slug, Name: name, Phone: phone, Niche: niche}
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&q)
			if res.Error != nil {
				return fmt.Errorf("queue %s: %w", phone, res.Error)
			}
			added += int(res.RowsAffected)

			h := models.HistoryItem{Tenant: slug, Name: name, Phone: phone, Niche: niche}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&h).Error; err != nil {
				return fmt.Errorf("history %s: %w", phone, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("store: enqueue %s: %w", slug, err)
	}
	return added, nil
}

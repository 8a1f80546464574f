package store

import (
	"context"
	"fmt"
	"time"

	"github.com/zulandar/outreach/internal/models"
)

// CountSent counts history rows marked sent with updated_at in [from, to).
func (s *Store) CountSent(ctx context.Context, slug string, from, to time.Time) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.HistoryItem{}).
		Where("tenant = ? AND sent = ? AND updated_at >= ? AND updated_at < ?", slug, true, from, to).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("store: count sent %s: %w", slug, err)
	}
	return n, nil
}

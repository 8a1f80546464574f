// Package quota derives a tenant's remaining daily send allowance from the
// history ledger.
package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/zulandar/outreach/internal/models"
)

// Source is the subset of the store the tracker reads.
type Source interface {
	Settings(ctx context.Context, slug string) (*models.TenantSettings, error)
	CountSent(ctx context.Context, slug string, from, to time.Time) (int64, error)
}

// Quota is a tenant's allowance for the calendar day containing the check.
type Quota struct {
	Cap       int `json:"cap"`
	SentToday int `json:"sentToday"`
	Remaining int `json:"remainingToday"`
}

// Exhausted reports whether no sends remain today.
func (q Quota) Exhausted() bool { return q.Remaining <= 0 }

// Tracker computes quotas against a Source.
type Tracker struct {
	src          Source
	defaultLimit int
}

// NewTracker returns a Tracker. defaultLimit applies to tenants whose
// daily_limit is unset.
func NewTracker(src Source, defaultLimit int) *Tracker {
	return &Tracker{src: src, defaultLimit: defaultLimit}
}

// Limit resolves the tenant's effective daily cap.
func (t *Tracker) Limit(ts *models.TenantSettings) int {
	if ts != nil && ts.DailyLimit > 0 {
		return ts.DailyLimit
	}
	return t.defaultLimit
}

// Check returns the tenant's cap, the sends already recorded today, and the
// remaining allowance (never negative).
func (t *Tracker) Check(ctx context.Context, slug string, now time.Time) (Quota, error) {
	ts, err := t.src.Settings(ctx, slug)
	if err != nil {
		return Quota{}, fmt.Errorf("quota: %w", err)
	}
	return t.CheckSettings(ctx, ts, now)
}

// CheckSettings is Check for an already-loaded settings row.
func (t *Tracker) CheckSettings(ctx context.Context, ts *models.TenantSettings, now time.Time) (Quota, error) {
	from, to := DayBounds(now)
	sent, err := t.src.CountSent(ctx, ts.Slug, from, to)
	if err != nil {
		return Quota{}, fmt.Errorf("quota: %w", err)
	}
	q := Quota{Cap: t.Limit(ts), SentToday: int(sent)}
	q.Remaining = q.Cap - q.SentToday
	if q.Remaining < 0 {
		q.Remaining = 0
	}
	return q, nil
}

// DayBounds returns [midnight, next midnight) in now's location.
func DayBounds(now time.Time) (time.Time, time.Time) {
	y, m, d := now.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return from, from.AddDate(0, 0, 1)
}

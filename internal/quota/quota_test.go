package quota

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/zulandar/outreach/internal/models"
)

type fakeSource struct {
	settings *models.TenantSettings
	sent     int64
	err      error

	gotFrom, gotTo time.Time
}

func (f *fakeSource) Settings(ctx context.Context, slug string) (*models.TenantSettings, error) {
	if f.settings == nil {
		return nil, errors.New("tenant not found")
	}
	return f.settings, nil
}

func (f *fakeSource) CountSent(ctx context.Context, slug string, from, to time.Time) (int64, error) {
	f.gotFrom, f.gotTo = from, to
	return f.sent, f.err
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name          string
		limit         int
		defaultLimit  int
		sent          int64
		wantCap       int
		wantRemaining int
	}{
		{"fresh day", 10, 50, 0, 10, 10},
		{"partially used", 10, 50, 4, 10, 6},
		{"exactly exhausted", 3, 50, 3, 3, 0},
		{"over cap clamps to zero", 3, 50, 7, 3, 0},
		{"falls back to default", 0, 50, 5, 50, 45},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{
				settings: &models.TenantSettings{Slug: "acme", DailyLimit: tt.limit},
				sent:     tt.sent,
			}
			q, err := NewTracker(src, tt.defaultLimit).Check(context.Background(), "acme", time.Now())
			if err != nil {
				t.Fatalf("Check: %v", err)
			}
			if q.Cap != tt.wantCap {
				t.Errorf("Cap = %d, want %d", q.Cap, tt.wantCap)
			}
			if q.SentToday != int(tt.sent) {
				t.Errorf("SentToday = %d, want %d", q.SentToday, tt.sent)
			}
			if q.Remaining != tt.wantRemaining {
				t.Errorf("Remaining = %d, want %d", q.Remaining, tt.wantRemaining)
			}
			if q.Exhausted() != (tt.wantRemaining == 0) {
				t.Errorf("Exhausted() = %v", q.Exhausted())
			}
		})
	}
}

func TestCheck_CountsCalendarDay(t *testing.T) {
	src := &fakeSource{settings: &models.TenantSettings{Slug: "acme", DailyLimit: 5}}
	now := time.Date(2026, 5, 4, 15, 30, 0, 0, time.Local)
	if _, err := NewTracker(src, 50).Check(context.Background(), "acme", now); err != nil {
		t.Fatal(err)
	}
	wantFrom := time.Date(2026, 5, 4, 0, 0, 0, 0, time.Local)
	if !src.gotFrom.Equal(wantFrom) {
		t.Errorf("from = %v, want %v", src.gotFrom, wantFrom)
	}
	if !src.gotTo.Equal(wantFrom.AddDate(0, 0, 1)) {
		t.Errorf("to = %v, want next midnight", src.gotTo)
	}
}

func TestCheck_Errors(t *testing.T) {
	_, err := NewTracker(&fakeSource{}, 50).Check(context.Background(), "ghost", time.Now())
	if err == nil || !strings.Contains(err.Error(), "quota:") {
		t.Errorf("err = %v, want quota-prefixed error", err)
	}

	src := &fakeSource{settings: &models.TenantSettings{Slug: "acme"}, err: errors.New("db down")}
	_, err = NewTracker(src, 50).Check(context.Background(), "acme", time.Now())
	if err == nil || !strings.Contains(err.Error(), "db down") {
		t.Errorf("err = %v, want wrapped count error", err)
	}
}

func TestDayBounds(t *testing.T) {
	now := time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC)
	from, to := DayBounds(now)
	if !from.Equal(time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("from = %v", from)
	}
	if !to.Equal(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("to = %v", to)
	}
}

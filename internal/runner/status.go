package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/outreach/internal/models"
	"github.com/zulandar/outreach/internal/quota"
	"github.com/zulandar/outreach/internal/store"
)

// StatusView is the read model for a tenant's run state.
type StatusView struct {
	LoopStatus models.LoopStatus `json:"loopStatus"`
	LastRunAt  *time.Time        `json:"lastRunAt"`
	quota.Quota
	ActuallyRunning bool `json:"actuallyRunning"`
}

// Status reports slug's run state. A persisted running or stopping beacon
// with no run in this process is left over from a crash and is reset to
// idle.
func (c *Coordinator) Status(ctx context.Context, slug string) (StatusView, error) {
	ts, err := c.store.Settings(ctx, slug)
	if errors.Is(err, store.ErrTenantNotFound) {
		return StatusView{}, fmt.Errorf("%w: %s", ErrInvalidSlug, slug)
	}
	if err != nil {
		return StatusView{}, fmt.Errorf("runner: status %s: %w", slug, err)
	}

	active := c.reg.IsActive(slug)
	view := StatusView{LoopStatus: ts.LoopStatus, LastRunAt: ts.LastRunAt, ActuallyRunning: active}
	if !active && ts.LoopStatus.Active() {
		swapped, err := c.store.CompareAndSetLoopStatus(ctx, slug,
			[]models.LoopStatus{models.LoopRunning, models.LoopStopping}, models.LoopIdle)
		if err != nil {
			c.log.Warn().Err(err).Str("tenant", slug).Msg("reset stale loop status")
		}
		if swapped {
			c.log.Info().Str("tenant", slug).Str("was", string(ts.LoopStatus)).Msg("reset stale loop status")
		}
		view.LoopStatus = models.LoopIdle
	}

	q, err := c.quota.CheckSettings(ctx, ts, c.now())
	if err != nil {
		return StatusView{}, fmt.Errorf("runner: status %s: %w", slug, err)
	}
	view.Quota = q
	return view, nil
}

// Package trigger starts runs for every auto-run tenant on a daily cron
// schedule.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/zulandar/outreach/internal/config"
	"github.com/zulandar/outreach/internal/runner"
	"golang.org/x/sync/errgroup"
)

// Lister returns the tenants due for an automatic run.
type Lister interface {
	AutoRunTenants(ctx context.Context) ([]string, error)
}

// Runner starts a tenant run.
type Runner interface {
	RunForTenant(ctx context.Context, slug string, opts runner.RunOpts) (runner.Result, error)
}

// Trigger fires RunForTenant for each auto-run tenant at every cron tick.
type Trigger struct {
	expr   string
	sched  cron.Schedule
	lister Lister
	runner Runner
	now    func() time.Time
	log    zerolog.Logger
}

// Opts holds parameters for creating a Trigger.
type Opts struct {
	Expr   string // 5-field cron expression
	Lister Lister
	Runner Runner
	Now    func() time.Time
	Logger zerolog.Logger
}

// New parses opts.Expr and returns a Trigger.
func New(opts Opts) (*Trigger, error) {
	if opts.Lister == nil || opts.Runner == nil {
		return nil, errors.New("trigger: lister and runner are required")
	}
	sched, err := config.CronParser.Parse(opts.Expr)
	if err != nil {
		return nil, fmt.Errorf("trigger: parse %q: %w", opts.Expr, err)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Trigger{
		expr:   opts.Expr,
		sched:  sched,
		lister: opts.Lister,
		runner: opts.Runner,
		now:    now,
		log:    opts.Logger,
	}, nil
}

// Next returns the first fire time after from.
func (t *Trigger) Next(from time.Time) time.Time {
	return t.sched.Next(from)
}

// untilNext returns the duration until the next fire time, never negative.
func (t *Trigger) untilNext() time.Duration {
	now := t.now()
	d := t.Next(now).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Fire starts a run for every auto-run tenant concurrently and waits for
// them all. A tenant that is already running is a no-op. The returned map
// holds each tenant's result; the error is the first invalid-slug failure
// or the listing error.
func (t *Trigger) Fire(ctx context.Context) (map[string]runner.Result, error) {
	slugs, err := t.lister.AutoRunTenants(ctx)
	if err != nil {
		return nil, fmt.Errorf("trigger: list tenants: %w", err)
	}
	t.log.Info().Int("tenants", len(slugs)).Msg("daily trigger fired")

	var (
		mu      sync.Mutex
		results = make(map[string]runner.Result, len(slugs))
		g       errgroup.Group
	)
	for _, slug := range slugs {
		g.Go(func() error {
			res, err := t.runner.RunForTenant(ctx, slug, runner.RunOpts{})
			if err != nil {
				t.log.Error().Err(err).Str("tenant", slug).Msg("auto run rejected")
				return err
			}
			if res.Status == runner.StatusAlreadyRunning {
				t.log.Debug().Str("tenant", slug).Msg("already running, skipped")
			}
			mu.Lock()
			results[slug] = res
			mu.Unlock()
			return nil
		})
	}
	err = g.Wait()
	return results, err
}

// Run fires at each cron tick until ctx is cancelled, then waits for the
// runs it started to return.
func (t *Trigger) Run(ctx context.Context) error {
	var g errgroup.Group
	timer := time.NewTimer(t.untilNext())
	defer timer.Stop()

	t.log.Info().Str("cron", t.expr).Time("next", t.Next(t.now())).Msg("daily trigger armed")
	for {
		select {
		case <-ctx.Done():
			return g.Wait()
		case <-timer.C:
			g.Go(func() error {
				if _, err := t.Fire(ctx); err != nil {
					t.log.Error().Err(err).Msg("daily trigger")
				}
				return nil
			})
			// Step past the current minute so one tick never fires twice.
			timer.Reset(t.untilNext() + time.Second)
		}
	}
}

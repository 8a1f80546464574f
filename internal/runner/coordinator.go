package runner

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/zulandar/outreach/internal/config"
	"github.com/zulandar/outreach/internal/dispatch"
	"github.com/zulandar/outreach/internal/models"
	"github.com/zulandar/outreach/internal/notify"
	"github.com/zulandar/outreach/internal/progress"
	"github.com/zulandar/outreach/internal/quota"
	"github.com/zulandar/outreach/internal/schedule"
	"github.com/zulandar/outreach/internal/store"
)

var (
	// ErrInvalidSlug is returned when a slug is malformed or names no tenant.
	ErrInvalidSlug = errors.New("runner: invalid slug")
	// ErrNotRunning is returned by RequestStop when no run is active.
	ErrNotRunning = errors.New("runner: not running")
)

// notifyTimeout bounds the best-effort run summary delivery.
const notifyTimeout = 10 * time.Second

// Status is the outcome of one RunForTenant call.
type Status string

const (
	StatusOK             Status = "ok"
	StatusAlreadyRunning Status = "already_running"
	StatusQuotaReached   Status = "quota_reached"
	StatusStopped        Status = "stopped"
	StatusError          Status = "error"
)

// Result summarizes a run. Processed counts successful sends.
type Result struct {
	Status    Status             `json:"status"`
	Processed int                `json:"processed"`
	Reason    progress.EndReason `json:"reason,omitempty"`
	Err       error              `json:"-"`
}

// Store is the persistence the coordinator needs.
type Store interface {
	quota.Source
	SetLoopStatus(ctx context.Context, slug string, status models.LoopStatus, lastRunAt *time.Time) error
	CompareAndSetLoopStatus(ctx context.Context, slug string, from []models.LoopStatus, next models.LoopStatus) (bool, error)
	QueueSize(ctx context.Context, slug string) (int64, error)
	NextEligible(ctx context.Context, slug string, exclude []string) (*models.QueueItem, error)
	Commit(ctx context.Context, slug string, item models.QueueItem, sent bool, at time.Time) error
}

// Planner returns the sleep before each of up to count sends starting at now.
type Planner func(count int, now time.Time) []time.Duration

// Options configures a Coordinator. Store, Hub and Registry are required.
type Options struct {
	Store             Store
	Hub               *progress.Hub
	Registry          *Registry
	Dispatcher        dispatch.Dispatcher // nil: every dispatch attempt is an error
	Notifier          notify.Notifier     // optional run summaries
	Window            schedule.Window
	DefaultDailyLimit int
	BatchSize         int // per-run slot cap; 0 means the daily limit
	Planner           Planner
	Now               func() time.Time
	Rand              *rand.Rand
	Logger            zerolog.Logger
}

// Coordinator runs tenant campaigns.
type Coordinator struct {
	store      Store
	hub        *progress.Hub
	reg        *Registry
	dispatcher dispatch.Dispatcher
	notifier   notify.Notifier
	quota      *quota.Tracker
	batchSize  int
	plan       Planner
	now        func() time.Time
	log        zerolog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	wg sync.WaitGroup
}

// New creates a Coordinator.
func New(opts Options) *Coordinator {
	c := &Coordinator{
		store:      opts.Store,
		hub:        opts.Hub,
		reg:        opts.Registry,
		dispatcher: opts.Dispatcher,
		notifier:   opts.Notifier,
		quota:      quota.NewTracker(opts.Store, opts.DefaultDailyLimit),
		batchSize:  opts.BatchSize,
		plan:       opts.Planner,
		now:        opts.Now,
		log:        opts.Logger,
		rng:        opts.Rand,
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if c.plan == nil {
		window := opts.Window
		c.plan = func(count int, now time.Time) []time.Duration {
			c.rngMu.Lock()
			defer c.rngMu.Unlock()
			return schedule.Delays(count, window, now, c.rng)
		}
	}
	return c
}

// RunOpts overrides tenant settings for one invocation.
type RunOpts struct {
	UseDispatcher *bool
	BatchSize     int
}

// RunForTenant runs slug's campaign to completion and returns its outcome.
// A second call while a run is active returns StatusAlreadyRunning
// immediately. The only error is ErrInvalidSlug; every other failure is
// reported through Result.
func (c *Coordinator) RunForTenant(ctx context.Context, slug string, opts RunOpts) (Result, error) {
	ts, res, err := c.acquire(ctx, slug)
	if ts == nil {
		return res, err
	}
	return c.run(ctx, ts, opts), nil
}

// Start is RunForTenant in the background. It reports false when a run is
// already active; the run's Result is only observable through progress
// events and Status. Wait blocks until background runs return.
func (c *Coordinator) Start(ctx context.Context, slug string, opts RunOpts) (bool, error) {
	ts, res, err := c.acquire(ctx, slug)
	if err != nil {
		return false, err
	}
	if ts == nil {
		if res.Status == StatusAlreadyRunning {
			return false, nil
		}
		return false, fmt.Errorf("runner: start %s: %w", slug, res.Err)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(ctx, ts, opts)
	}()
	return true, nil
}

// Wait blocks until every run launched by Start has finished.
func (c *Coordinator) Wait() { c.wg.Wait() }

// Active returns the tenants with a run in progress.
func (c *Coordinator) Active() []string { return c.reg.Active() }

// acquire validates slug and takes its single-flight slot. A nil settings
// row means no run should happen; res then says why.
func (c *Coordinator) acquire(ctx context.Context, slug string) (*models.TenantSettings, Result, error) {
	if !config.SlugPattern.MatchString(slug) {
		return nil, Result{}, fmt.Errorf("%w: %q", ErrInvalidSlug, slug)
	}
	ts, err := c.store.Settings(ctx, slug)
	if errors.Is(err, store.ErrTenantNotFound) {
		return nil, Result{}, fmt.Errorf("%w: %s", ErrInvalidSlug, slug)
	}
	if err != nil {
		c.log.Error().Err(err).Str("tenant", slug).Msg("load settings")
		return nil, Result{Status: StatusError, Err: err}, nil
	}

	if !c.reg.TryAcquire(slug) {
		return nil, Result{Status: StatusAlreadyRunning}, nil
	}
	return ts, Result{}, nil
}

// run owns the single-flight slot for ts.Slug and always releases it.
func (c *Coordinator) run(ctx context.Context, ts *models.TenantSettings, opts RunOpts) (res Result) {
	startedAt := c.now()
	log := c.log.With().Str("tenant", ts.Slug).Logger()

	defer func() {
		if p := recover(); p != nil {
			res.Status = StatusError
			res.Reason = ""
			res.Err = fmt.Errorf("runner: %s: panic: %v", ts.Slug, p)
			log.Error().Err(res.Err).Msg("run aborted")
		}
		c.finish(ts.Slug, startedAt, res, log)
	}()

	c.loop(ctx, ts, opts, &res, log)
	return res
}

func (c *Coordinator) loop(ctx context.Context, ts *models.TenantSettings, opts RunOpts, res *Result, log zerolog.Logger) {
	slug := ts.Slug
	if err := c.store.SetLoopStatus(ctx, slug, models.LoopRunning, nil); err != nil {
		log.Warn().Err(err).Msg("persist running status")
	}

	total, err := c.store.QueueSize(ctx, slug)
	if err != nil {
		log.Warn().Err(err).Msg("count queue")
		total = 0
	}
	c.hub.Publish(slug, progress.StartEvent(int(total), c.now()))

	useDispatcher := ts.UseDispatcher
	if opts.UseDispatcher != nil {
		useDispatcher = *opts.UseDispatcher
	}

	q, err := c.quota.CheckSettings(ctx, ts, c.now())
	if err != nil {
		res.Status, res.Err = StatusError, err
		log.Error().Err(err).Msg("check quota")
		return
	}
	if q.Exhausted() {
		res.Status, res.Reason = StatusQuotaReached, progress.ReasonDailyQuota
		log.Info().Int("cap", q.Cap).Int("sent_today", q.SentToday).Msg("daily quota reached")
		return
	}

	batch := opts.BatchSize
	if batch <= 0 {
		batch = c.batchSize
	}
	if batch <= 0 || batch > q.Cap {
		batch = q.Cap
	}

	now := c.now()
	delays := c.plan(batch, now)
	slots := min(len(delays), q.Remaining)
	c.hub.Publish(slug, progress.ScheduleEvent(schedule.Planned(now, delays[:slots]), q.Remaining, q.Cap, now))
	log.Info().Int("slots", slots).Int("remaining_today", q.Remaining).Bool("dispatch", useDispatcher).Msg("run started")

	attempted := make([]string, 0, slots)
	res.Status = StatusOK
	for i := 0; i < slots; i++ {
		if c.reg.IsStopRequested(slug) {
			c.markStopped(res)
			break
		}
		if !c.reg.Sleep(ctx, slug, delays[i]) {
			c.markStopped(res)
			break
		}
		if c.reg.IsStopRequested(slug) {
			c.markStopped(res)
			break
		}

		item, err := c.store.NextEligible(ctx, slug, attempted)
		if err != nil {
			res.Status, res.Reason, res.Err = StatusError, "", err
			log.Error().Err(err).Msg("select next contact")
			return
		}
		if item == nil {
			log.Info().Msg("queue drained")
			break
		}
		attempted = append(attempted, item.Phone)

		// An in-flight send and its commit finish even if ctx is cancelled.
		outcome := c.attempt(context.WithoutCancel(ctx), ts, item, useDispatcher, log)
		if err := c.store.Commit(context.WithoutCancel(ctx), slug, *item, outcome == progress.StatusSuccess, c.now()); err != nil {
			log.Error().Err(err).Str("phone", item.Phone).Msg("commit outcome")
			outcome = progress.StatusError
		}
		if outcome == progress.StatusSuccess {
			res.Processed++
		}

		status := outcome
		stop := c.reg.IsStopRequested(slug)
		if stop {
			c.markStopped(res)
			status = progress.StatusStopped
		}
		c.hub.Publish(slug, progress.ItemEvent(item.Name, item.Phone, outcome == progress.StatusSuccess, status, c.now()))
		if stop {
			break
		}
	}
}

func (c *Coordinator) markStopped(res *Result) {
	res.Status, res.Reason = StatusStopped, progress.ReasonManualStop
}

// attempt performs one send. A panicking dispatcher counts as an error.
func (c *Coordinator) attempt(ctx context.Context, ts *models.TenantSettings, item *models.QueueItem, useDispatcher bool, log zerolog.Logger) (outcome progress.ItemStatus) {
	if !useDispatcher {
		return progress.StatusSkipped
	}
	if c.dispatcher == nil {
		log.Error().Str("phone", item.Phone).Msg("no dispatcher configured")
		return progress.StatusError
	}

	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic", p).Str("phone", item.Phone).Msg("dispatcher panicked")
			outcome = progress.StatusError
		}
	}()

	err := c.dispatcher.Dispatch(ctx, dispatch.Message{
		Tenant:      ts.Slug,
		Name:        item.Name,
		Phone:       item.Phone,
		Niche:       item.Niche,
		Text:        ts.MessageTemplate,
		Credentials: ts.Credentials,
	})
	if err != nil {
		log.Warn().Err(err).Str("phone", item.Phone).Msg("dispatch failed")
		return progress.StatusError
	}
	return progress.StatusSuccess
}

// finish persists the final beacon, publishes the end event, releases the
// slot and sends the summary. It runs even after a panic.
func (c *Coordinator) finish(slug string, startedAt time.Time, res Result, log zerolog.Logger) {
	ctx := context.Background()
	endedAt := c.now()

	status := models.LoopIdle
	if res.Status == StatusError {
		status = models.LoopError
	}
	var lastRunAt *time.Time
	if res.Status != StatusQuotaReached {
		lastRunAt = &endedAt
	}
	if err := c.store.SetLoopStatus(ctx, slug, status, lastRunAt); err != nil {
		log.Error().Err(err).Msg("persist final status")
	}

	c.hub.Publish(slug, progress.EndEvent(res.Processed, res.Reason, endedAt))
	c.reg.Release(slug)

	log.Info().Str("status", string(res.Status)).Int("processed", res.Processed).
		Dur("elapsed", endedAt.Sub(startedAt)).Msg("run finished")

	if c.notifier == nil {
		return
	}
	nctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	if err := c.notifier.Notify(nctx, notify.Summary{
		Tenant:    slug,
		Status:    string(res.Status),
		Processed: res.Processed,
		Reason:    string(res.Reason),
		Err:       res.Err,
		StartedAt: startedAt,
		EndedAt:   endedAt,
	}); err != nil {
		log.Warn().Err(err).Msg("send run summary")
	}
}

// RequestStop asks slug's active run to stop at its next checkpoint.
func (c *Coordinator) RequestStop(ctx context.Context, slug string) error {
	if !c.reg.StopIfActive(slug) {
		return fmt.Errorf("%w: %s", ErrNotRunning, slug)
	}
	if _, err := c.store.CompareAndSetLoopStatus(ctx, slug, []models.LoopStatus{models.LoopRunning}, models.LoopStopping); err != nil {
		c.log.Warn().Err(err).Str("tenant", slug).Msg("persist stopping status")
	}
	return nil
}

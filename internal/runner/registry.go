// Package runner drives one tenant's campaign run at a time: it plans the
// day's sends, paces them through abortable sleeps, dispatches, commits
// each outcome, and reports progress.
package runner

import (
	"context"
	"sort"
	"sync"
	"time"
)

// DefaultPollInterval is how often an abortable sleep checks for a stop.
const DefaultPollInterval = 250 * time.Millisecond

// Registry is the process-local single-flight set and stop-flag table.
type Registry struct {
	mu     sync.Mutex
	active map[string]struct{}
	stops  map[string]bool
	poll   time.Duration
}

// NewRegistry creates a Registry whose sleeps poll every poll interval.
func NewRegistry(poll time.Duration) *Registry {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Registry{
		active: make(map[string]struct{}),
		stops:  make(map[string]bool),
		poll:   poll,
	}
}

// TryAcquire marks slug active. It returns false if a run already holds it.
func (r *Registry) TryAcquire(slug string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[slug]; ok {
		return false
	}
	r.active[slug] = struct{}{}
	return true
}

// Release ends slug's run and clears any pending stop request.
func (r *Registry) Release(slug string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, slug)
	delete(r.stops, slug)
}

// IsActive reports whether a run currently holds slug.
func (r *Registry) IsActive(slug string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[slug]
	return ok
}

// Active returns the slugs with a run in progress, sorted.
func (r *Registry) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.active))
	for slug := range r.active {
		out = append(out, slug)
	}
	sort.Strings(out)
	return out
}

// RequestStop flags slug for cancellation. It may be called at any time;
// a flag set before a run starts is honored at that run's first check.
func (r *Registry) RequestStop(slug string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops[slug] = true
}

// StopIfActive sets the stop flag only while a run holds slug, so a
// request racing with the end of a run cannot leave a stale flag behind.
func (r *Registry) StopIfActive(slug string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[slug]; !ok {
		return false
	}
	r.stops[slug] = true
	return true
}

// IsStopRequested reports whether slug has a pending stop.
func (r *Registry) IsStopRequested(slug string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stops[slug]
}

// Sleep waits for d, checking slug's stop flag every poll interval. It
// returns true if the full duration elapsed and false if a stop was
// requested or ctx ended first.
func (r *Registry) Sleep(ctx context.Context, slug string, d time.Duration) bool {
	if r.IsStopRequested(slug) {
		return false
	}
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return true
		case <-ticker.C:
			if r.IsStopRequested(slug) {
				return false
			}
		}
	}
}

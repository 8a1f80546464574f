package dispatch

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// Limited paces sends per tenant so a burst of manual runs cannot flood a
// tenant's gateway.
type Limited struct {
	next  Dispatcher
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// RateLimited wraps next with a per-tenant token bucket. perSec <= 0 means
// unlimited.
func RateLimited(next Dispatcher, perSec float64, burst int) *Limited {
	limit := rate.Limit(perSec)
	if perSec <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limited{
		next:     next,
		limit:    limit,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *Limited) limiter(tenant string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[tenant]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[tenant] = lim
	}
	return lim
}

// Dispatch waits for the tenant's limiter, then forwards to the wrapped
// dispatcher.
func (l *Limited) Dispatch(ctx context.Context, msg Message) error {
	if err := l.limiter(msg.Tenant).Wait(ctx); err != nil {
		return fmt.Errorf("dispatch: rate limit %s: %w", msg.Tenant, err)
	}
	return l.next.Dispatch(ctx, msg)
}

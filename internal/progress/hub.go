// Package progress fans run events out to live observers and keeps a
// bounded per-tenant replay buffer for observers that attach late.
package progress

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultBufferSize is the number of item events kept for replay.
	DefaultBufferSize = 200
	// DefaultSubscriberBuffer is the live-event headroom per subscriber.
	DefaultSubscriberBuffer = 64
	// DefaultHeartbeatInterval is the keepalive period for RunHeartbeat.
	DefaultHeartbeatInterval = 15 * time.Second
)

// Snapshot is the replayable state of a tenant's current or last run.
type Snapshot struct {
	LastStart *Event
	Items     []Event
	LastEnd   *Event
}

// Events returns the snapshot in replay order.
func (s Snapshot) Events() []Event {
	out := make([]Event, 0, len(s.Items)+2)
	if s.LastStart != nil {
		out = append(out, *s.LastStart)
	}
	out = append(out, s.Items...)
	if s.LastEnd != nil {
		out = append(out, *s.LastEnd)
	}
	return out
}

type topic struct {
	subs   map[uint64]chan Event
	nextID uint64
	snap   Snapshot
}

// Hub is the registry of per-tenant topics.
type Hub struct {
	mu        sync.Mutex
	topics    map[string]*topic
	bufSize   int
	subBuffer int
	log       zerolog.Logger
}

// HubOpts holds parameters for creating a Hub.
type HubOpts struct {
	BufferSize       int // item events kept for replay (default 200)
	SubscriberBuffer int // live headroom per subscriber (default 64)
	Logger           zerolog.Logger
}

// NewHub creates an empty Hub.
func NewHub(opts HubOpts) *Hub {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.SubscriberBuffer <= 0 {
		opts.SubscriberBuffer = DefaultSubscriberBuffer
	}
	return &Hub{
		topics:    make(map[string]*topic),
		bufSize:   opts.BufferSize,
		subBuffer: opts.SubscriberBuffer,
		log:       opts.Logger,
	}
}

// topicLocked returns the tenant's topic, creating it. Caller holds h.mu.
func (h *Hub) topicLocked(slug string) *topic {
	t, ok := h.topics[slug]
	if !ok {
		t = &topic{subs: make(map[uint64]chan Event)}
		h.topics[slug] = t
	}
	return t
}

// Publish records e in the tenant's snapshot and delivers it to every
// subscriber. A subscriber whose buffer is full is disconnected rather than
// silently skipped, so a stream never has gaps; it can resubscribe and
// replay.
func (h *Hub) Publish(slug string, e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	t := h.topicLocked(slug)
	switch e.Type {
	case TypeStart:
		ev := e
		t.snap = Snapshot{LastStart: &ev}
	case TypeItem:
		t.snap.Items = append(t.snap.Items, e)
		if over := len(t.snap.Items) - h.bufSize; over > 0 {
			t.snap.Items = append([]Event(nil), t.snap.Items[over:]...)
		}
	case TypeEnd:
		ev := e
		t.snap.LastEnd = &ev
	}

	for id, ch := range t.subs {
		select {
		case ch <- e:
		default:
			delete(t.subs, id)
			close(ch)
			h.log.Warn().Str("tenant", slug).Uint64("subscriber", id).Msg("progress subscriber too slow; disconnected")
		}
	}
}

// Subscribe attaches a new observer. The returned channel first yields the
// snapshot (last start, buffered items, last end) and then live events.
// Replay and registration happen under one lock so nothing is missed or
// duplicated in between.
func (h *Hub) Subscribe(slug string) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	t := h.topicLocked(slug)
	replay := t.snap.Events()
	ch := make(chan Event, len(replay)+h.subBuffer)
	for _, e := range replay {
		ch <- e
	}
	id := t.nextID
	t.nextID++
	t.subs[id] = ch
	return &Subscription{C: ch, hub: h, slug: slug, id: id}
}

// Snapshot returns a copy of the tenant's replay state.
func (h *Hub) Snapshot(slug string) Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	t, ok := h.topics[slug]
	if !ok {
		return Snapshot{}
	}
	s := Snapshot{Items: append([]Event(nil), t.snap.Items...)}
	if t.snap.LastStart != nil {
		ev := *t.snap.LastStart
		s.LastStart = &ev
	}
	if t.snap.LastEnd != nil {
		ev := *t.snap.LastEnd
		s.LastEnd = &ev
	}
	return s
}

// Subscribers returns the number of live observers for a tenant.
func (h *Hub) Subscribers(slug string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t, ok := h.topics[slug]; ok {
		return len(t.subs)
	}
	return 0
}

// Heartbeat sends a keepalive to every subscriber of every tenant. It is
// not recorded for replay, and a full subscriber simply misses it.
func (h *Hub) Heartbeat(at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	e := HeartbeatEvent(at)
	for _, t := range h.topics {
		for _, ch := range t.subs {
			select {
			case ch <- e:
			default:
			}
		}
	}
}

// RunHeartbeat emits Heartbeat every interval until ctx is cancelled.
func (h *Hub) RunHeartbeat(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			h.Heartbeat(now)
		}
	}
}

func (h *Hub) unsubscribe(slug string, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	t, ok := h.topics[slug]
	if !ok {
		return
	}
	if ch, ok := t.subs[id]; ok {
		delete(t.subs, id)
		close(ch)
	}
}

// Subscription is one observer's stream. C is closed after Close or when
// the hub disconnects a slow observer.
type Subscription struct {
	C <-chan Event

	hub  *Hub
	slug string
	id   uint64
}

// Close detaches the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.hub.unsubscribe(s.slug, s.id)
}

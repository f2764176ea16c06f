package services

import (
	"context"
	"sync"
	"time"

	"github.com/aquillm/aquillm/internal/core/domain"
	"github.com/aquillm/aquillm/internal/core/ports/driven"
	"github.com/aquillm/aquillm/internal/core/ports/driving"
	"github.com/aquillm/aquillm/internal/logger"
)

// Ensure EventBus implements the interface.
var _ driving.EventBus = (*EventBus)(nil)

// subscriberBuffer is the per-subscriber channel capacity. A subscriber
// that falls further behind loses events (at-most-once best effort);
// the durable log covers catch-up via Replay.
const subscriberBuffer = 64

// EventBus fans status events out to live subscribers and appends them
// to the durable, time-bounded event log. Sequence numbers are assigned
// under the publish lock, which also gives per-source publish ordering.
type EventBus struct {
	log driven.EventLog

	mu     sync.Mutex
	seq    uint64
	nextID int
	subs   map[int]*subscriber
	closed bool
}

type subscriber struct {
	filter driving.EventFilter
	ch     chan domain.StatusEvent
}

// NewEventBus creates an event bus backed by the given durable log.
// The log may be nil, in which case Replay returns nothing. The
// sequence resumes after the log's retained tail, so a restarted
// process never reissues sequence numbers still held by logged events.
func NewEventBus(log driven.EventLog) *EventBus {
	b := &EventBus{
		log:  log,
		subs: make(map[int]*subscriber),
	}
	if log != nil {
		events, err := log.Since(context.Background(), time.Now().UTC().Add(-domain.EventRetention))
		if err != nil {
			logger.Warn("event log recovery failed: %v", err)
		} else if n := len(events); n > 0 {
			b.seq = events[n-1].Seq
		}
	}
	return b
}

// Publish delivers an event to matching subscribers and appends it to
// the log. Slow subscribers are skipped rather than blocking the
// publisher.
func (b *EventBus) Publish(event domain.StatusEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.seq++
	event.Seq = b.seq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if b.log != nil {
		if err := b.log.Append(context.Background(), event); err != nil {
			logger.Warn("event log append failed: %v", err)
		}
	}

	for _, sub := range b.subs {
		if !sub.filter.Matches(event) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			// Subscriber buffer full; drop for this subscriber.
		}
	}
}

// Subscribe returns a channel of matching events and a cancel function.
func (b *EventBus) Subscribe(filter driving.EventFilter) (<-chan domain.StatusEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	sub := &subscriber{
		filter: filter,
		ch:     make(chan domain.StatusEvent, subscriberBuffer),
	}
	b.subs[id] = sub

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if s, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(s.ch)
		}
	}

	return sub.ch, cancel
}

// Replay returns retained events published after the given time.
func (b *EventBus) Replay(ctx context.Context, since time.Time) ([]domain.StatusEvent, error) {
	if b.log == nil {
		return nil, nil
	}
	return b.log.Since(ctx, since)
}

// Close shuts the bus down, closing all subscriber channels.
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
}

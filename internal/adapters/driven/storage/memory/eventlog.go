package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aquillm/aquillm/internal/core/domain"
	"github.com/aquillm/aquillm/internal/core/ports/driven"
)

// Ensure EventLog implements the interface.
var _ driven.EventLog = (*EventLog)(nil)

// EventLog is an in-memory implementation of driven.EventLog with the
// same retention semantics as the durable one.
type EventLog struct {
	mu     sync.Mutex
	events []domain.StatusEvent
}

// NewEventLog creates a new in-memory event log.
func NewEventLog() *EventLog {
	return &EventLog{}
}

// Append records an event.
func (l *EventLog) Append(_ context.Context, event domain.StatusEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

// Since returns retained events published after t, pruning expired
// entries first.
func (l *EventLog) Since(_ context.Context, t time.Time) ([]domain.StatusEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().UTC().Add(-domain.EventRetention)
	kept := l.events[:0]
	for _, ev := range l.events {
		if ev.Timestamp.After(cutoff) {
			kept = append(kept, ev)
		}
	}
	l.events = kept

	var result []domain.StatusEvent
	for _, ev := range l.events {
		if ev.Timestamp.After(t) {
			result = append(result, ev)
		}
	}
	return result, nil
}

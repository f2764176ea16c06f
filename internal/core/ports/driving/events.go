package driving

import (
	"context"
	"time"

	"github.com/aquillm/aquillm/internal/core/domain"
)

// EventFilter restricts a subscription. The zero value matches all events.
type EventFilter struct {
	// SourceID limits events to one document or sync source.
	SourceID string

	// Severity limits events to one severity.
	Severity domain.Severity
}

// Matches reports whether the event passes the filter.
func (f EventFilter) Matches(ev domain.StatusEvent) bool {
	if f.SourceID != "" && ev.SourceID != f.SourceID {
		return false
	}
	if f.Severity != "" && ev.Severity != f.Severity {
		return false
	}
	return true
}

// EventBus pushes ingestion progress events to connected clients.
// Delivery to live subscribers is at-most-once best effort; the durable
// log retains domain.EventRetention of history for replay.
type EventBus interface {
	// Publish delivers an event to subscribers and appends it to the log.
	Publish(event domain.StatusEvent)

	// Subscribe returns a channel of matching events. The channel is
	// closed when cancel is called or the bus shuts down.
	Subscribe(filter EventFilter) (<-chan domain.StatusEvent, func())

	// Replay returns retained events published after the given time.
	Replay(ctx context.Context, since time.Time) ([]domain.StatusEvent, error)
}

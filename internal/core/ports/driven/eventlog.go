package driven

import (
	"context"
	"time"

	"github.com/aquillm/aquillm/internal/core/domain"
)

// EventLog durably stores status events for a bounded time window so a
// reconnecting client can replay recent history. Entries older than
// domain.EventRetention are pruned on read.
type EventLog interface {
	// Append records an event.
	Append(ctx context.Context, event domain.StatusEvent) error

	// Since returns retained events published after the given time,
	// in sequence order, pruning expired entries first.
	Since(ctx context.Context, t time.Time) ([]domain.StatusEvent, error)
}

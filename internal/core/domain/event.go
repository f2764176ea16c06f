package domain

import "time"

// Severity classifies a status event.
type Severity string

// Event severities.
const (
	SeverityInfo    Severity = "info"
	SeverityError   Severity = "error"
	SeveritySuccess Severity = "success"
)

// EventRetention is how long status events are kept in the durable log
// before being pruned.
const EventRetention = 24 * time.Hour

// StatusEvent is a progress notification emitted by the ingestion
// pipeline and delivered to connected clients. Events for the same
// SourceID are delivered in publish order; there is no cross-source
// ordering guarantee.
type StatusEvent struct {
	// SourceID identifies the document or sync source the event is about.
	SourceID string

	// Severity is info, error or success.
	Severity Severity

	// Message is the human-readable progress text.
	Message string

	// Seq is a monotonic sequence number assigned at publish time.
	Seq uint64

	// Timestamp is when the event was published.
	Timestamp time.Time
}

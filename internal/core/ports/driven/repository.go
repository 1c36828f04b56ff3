package driven

import (
	"github.com/custodia-labs/leafstream/internal/core/domain"
)

// EventRepository owns the durable append-only event logs and the
// in-memory recent-events buffer. It is the sole writer of persisted
// pipeline state.
type EventRepository interface {
	// Save appends the event's raw payload to the raw log, the
	// normalised event to the normalised log, and the event to the
	// in-memory buffer, as one logical unit. If any append fails the
	// event is not-yet-saved and the error is returned; the caller
	// must not treat the event as delivered.
	Save(event domain.IngestionEvent) error

	// RecentEvents returns up to limit of the most recent accepted
	// events, oldest first, from memory only.
	RecentEvents(limit int) []domain.IngestionEvent

	// SourceHealth returns, for every source that has produced at
	// least one event, the most recent price observation time and the
	// source's static configuration.
	SourceHealth() []domain.SourceHealth
}

// DedupLedger tracks which price observations have been accepted
// within this process lifetime. The signature covers the 4-tuple
// (source, product, amount, observed_at); distinct reviews behind the
// same price signature dedup together by design.
type DedupLedger interface {
	// Seen reports whether the signature was already marked.
	Seen(signature string) bool

	// Mark records a signature as accepted. Call only after the
	// corresponding event has been durably saved, so a failed save is
	// naturally retried on the next cycle.
	Mark(signature string)

	// Observe is the combined membership-and-insert query: it returns
	// true if the signature was already present, and marks it
	// otherwise.
	Observe(signature string) bool
}

package domain

import (
	"fmt"
	"time"
)

// Signature computes the deduplication key for one price observation:
// the 4-tuple (source, product, amount, observed_at) with the amount
// formatted to two decimal places. observedAt is the raw timestamp
// string exactly as the source reported it.
func Signature(sourceID, productID string, amount float64, observedAt string) string {
	return fmt.Sprintf("%s|%s|%.2f|%s", sourceID, productID, amount, observedAt)
}

// Parse status markers recorded on a raw payload.
const (
	ParseStatusOK = "ok"
)

// Wire event types published by the broker.
const (
	EventTypePriceUpdate = "price_update"
	EventTypeHeartbeat   = "heartbeat"
)

// RawPayload bundles the original source records behind an ingestion
// event, together with the ingest timestamp and a parse-status marker.
type RawPayload struct {
	Source      Source    `json:"source"`
	RawProduct  RawRecord `json:"raw_product"`
	RawPrice    RawRecord `json:"raw_price"`
	RawReview   RawRecord `json:"raw_review"`
	IngestedAt  time.Time `json:"ingested_at"`
	ParseStatus string    `json:"parse_status"`
}

// IngestionEvent is the atomic unit persisted and published. It is only
// constructed once the raw catalog, price and review records for a
// product have all been fetched, the dedup check has passed, and all
// three entities normalised — it is never partially populated, and
// never mutated after creation.
type IngestionEvent struct {
	ID         string     `json:"id"`
	Source     Source     `json:"source"`
	Product    Product    `json:"product"`
	Price      PricePoint `json:"price"`
	Review     Review     `json:"review"`
	RawPayload RawPayload `json:"raw_payload"`
}

// PriceUpdateEvent is the wire form of an accepted observation.
type PriceUpdateEvent struct {
	Type    string     `json:"type"`
	Product Product    `json:"product"`
	Price   PricePoint `json:"price"`
	Review  Review     `json:"review"`
}

// NewPriceUpdateEvent builds the wire event for an ingestion event.
func NewPriceUpdateEvent(ev IngestionEvent) PriceUpdateEvent {
	return PriceUpdateEvent{
		Type:    EventTypePriceUpdate,
		Product: ev.Product,
		Price:   ev.Price,
		Review:  ev.Review,
	}
}

// HeartbeatEvent signals "source alive, no new data" for a cycle that
// produced no catalog records. Heartbeats are published but never
// persisted.
type HeartbeatEvent struct {
	Type      string    `json:"type"`
	SourceID  string    `json:"source_id"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// NewHeartbeatEvent builds a heartbeat for the given source.
func NewHeartbeatEvent(sourceID string, at time.Time) HeartbeatEvent {
	return HeartbeatEvent{
		Type:      EventTypeHeartbeat,
		SourceID:  sourceID,
		Timestamp: at,
		Message:   "no catalog data returned yet",
	}
}

package driven

import (
	"context"

	"github.com/custodia-labs/leafstream/internal/core/domain"
)

// SourceConnector fetches raw records from one upstream source. Each
// provider kind (mock, generic HTTP) implements this interface.
//
// Failure policy: every fetch is best-effort. Transport errors,
// timeouts and malformed payloads are swallowed by the connector and
// surfaced as an empty slice, so a failing source degrades to "no data
// this cycle" rather than aborting the caller. Connectors never panic
// and never return errors from fetch operations.
type SourceConnector interface {
	// Provider returns the connector's provider kind.
	Provider() domain.Provider

	// SourceID returns the bound source's ID.
	SourceID() string

	// FetchCatalog returns the source's raw product catalog records.
	FetchCatalog(ctx context.Context) []domain.RawRecord

	// FetchPrices returns the source's raw price records.
	FetchPrices(ctx context.Context) []domain.RawRecord

	// FetchReviews returns the source's raw review records.
	FetchReviews(ctx context.Context) []domain.RawRecord
}

// ConnectorBuilder creates a SourceConnector bound to a source.
type ConnectorBuilder func(source domain.Source) (SourceConnector, error)

// ConnectorFactory creates connectors from source configuration. It
// maintains a registry of provider kinds and their builders.
type ConnectorFactory interface {
	// Create returns a connector for the given source.
	// Returns domain.ErrUnsupportedProvider for unknown kinds.
	Create(source domain.Source) (SourceConnector, error)

	// Register adds a builder for the given provider kind.
	Register(provider domain.Provider, builder ConnectorBuilder)

	// SupportedProviders returns all registered provider kinds.
	SupportedProviders() []domain.Provider
}

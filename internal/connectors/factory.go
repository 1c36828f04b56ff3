// Package connectors wires provider kinds to connector constructors.
package connectors

import (
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/leafstream/internal/connectors/httpjson"
	"github.com/custodia-labs/leafstream/internal/connectors/mock"
	"github.com/custodia-labs/leafstream/internal/core/domain"
	"github.com/custodia-labs/leafstream/internal/core/ports/driven"
)

// Ensure Factory implements the interface.
var _ driven.ConnectorFactory = (*Factory)(nil)

// Factory creates connectors from source configuration via a registry
// of provider kinds. Dispatch is by tagged kind, not subclassing: one
// builder per provider.
type Factory struct {
	mu       sync.RWMutex
	builders map[domain.Provider]driven.ConnectorBuilder
}

// NewFactory creates an empty factory.
func NewFactory() *Factory {
	return &Factory{
		builders: make(map[domain.Provider]driven.ConnectorBuilder),
	}
}

// DefaultFactory returns a factory with the built-in connectors
// registered: mock and generic HTTP-JSON.
func DefaultFactory() *Factory {
	f := NewFactory()
	f.Register(domain.ProviderMock, func(source domain.Source) (driven.SourceConnector, error) {
		return mock.New(source), nil
	})
	f.Register(domain.ProviderGeneric, func(source domain.Source) (driven.SourceConnector, error) {
		return httpjson.New(source), nil
	})
	return f
}

// Register adds a builder for the given provider kind, replacing any
// existing registration.
func (f *Factory) Register(provider domain.Provider, builder driven.ConnectorBuilder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[provider] = builder
}

// Create returns a connector for the source's provider kind.
func (f *Factory) Create(source domain.Source) (driven.SourceConnector, error) {
	f.mu.RLock()
	builder, ok := f.builders[source.Provider]
	f.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedProvider, source.Provider)
	}
	return builder(source)
}

// SupportedProviders returns all registered provider kinds, sorted.
func (f *Factory) SupportedProviders() []domain.Provider {
	f.mu.RLock()
	defer f.mu.RUnlock()

	providers := make([]domain.Provider, 0, len(f.builders))
	for provider := range f.builders {
		providers = append(providers, provider)
	}
	sort.Slice(providers, func(i, j int) bool { return providers[i] < providers[j] })
	return providers
}

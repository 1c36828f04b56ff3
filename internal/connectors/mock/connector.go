// Package mock provides the reference connector used to validate the
// ingestion and streaming pipeline without network dependencies.
package mock

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/custodia-labs/leafstream/internal/core/domain"
	"github.com/custodia-labs/leafstream/internal/core/ports/driven"
)

// Price bounds for generated observations, in the source currency.
const (
	minAmount = 18.0
	maxAmount = 65.0
)

var reviewSnippets = []string{
	"Great effects and flavor.",
	"Solid value for the price.",
	"Would buy again.",
}

// Ensure Connector implements the interface.
var _ driven.SourceConnector = (*Connector)(nil)

// Connector serves a small fixed catalog with pseudo-random prices,
// availability and reviews.
type Connector struct {
	source   domain.Source
	products []domain.RawRecord
	rng      *rand.Rand
	now      func() time.Time
}

// New creates a mock connector bound to the source.
func New(source domain.Source) *Connector {
	return &Connector{
		source: source,
		products: []domain.RawRecord{
			{"source_product_id": "flower-001", "name": "Blue Dream 3.5g", "brand": "North Farm", "category": "Flower"},
			{"source_product_id": "vape-002", "name": "Pineapple Express Cart", "brand": "Sky Labs", "category": "Vape"},
			{"source_product_id": "gummy-003", "name": "Mango Gummies 100mg", "brand": "Happy Leaf", "category": "Edible"},
		},
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Provider returns the mock provider kind.
func (c *Connector) Provider() domain.Provider { return domain.ProviderMock }

// SourceID returns the bound source's ID.
func (c *Connector) SourceID() string { return c.source.ID }

// FetchCatalog returns the fixed three-product catalog.
func (c *Connector) FetchCatalog(_ context.Context) []domain.RawRecord {
	return c.products
}

// FetchPrices generates one price observation per product: an amount
// uniformly sampled between minAmount and maxAmount, and availability
// true roughly 80% of the time.
func (c *Connector) FetchPrices(_ context.Context) []domain.RawRecord {
	observedAt := c.now().Format(time.RFC3339)
	prices := make([]domain.RawRecord, 0, len(c.products))
	for _, product := range c.products {
		amount := minAmount + c.rng.Float64()*(maxAmount-minAmount)
		prices = append(prices, domain.RawRecord{
			"source_product_id": product["source_product_id"],
			"amount":            float64(int(amount*100)) / 100,
			"currency":          "USD",
			"observed_at":       observedAt,
			"in_stock":          c.rng.Float64() > 0.2,
		})
	}
	return prices
}

// FetchReviews generates one review per product with a rating in
// [3.5, 5.0] and a body drawn from a fixed snippet set.
func (c *Connector) FetchReviews(_ context.Context) []domain.RawRecord {
	now := c.now()
	observedAt := now.Format(time.RFC3339)
	reviews := make([]domain.RawRecord, 0, len(c.products))
	for _, product := range c.products {
		rating := 3.5 + c.rng.Float64()*1.5
		reviews = append(reviews, domain.RawRecord{
			"source_product_id": product["source_product_id"],
			"id":                fmt.Sprintf("%v-%d", product["source_product_id"], now.Unix()),
			"rating":            float64(int(rating*10)) / 10,
			"title":             "Live feedback",
			"body":              reviewSnippets[c.rng.Intn(len(reviewSnippets))],
			"author":            "anonymous",
			"observed_at":       observedAt,
		})
	}
	return reviews
}

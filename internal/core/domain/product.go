package domain

import "time"

// Product is a canonical catalog entry. The composite ID is
// "{source_id}:{source_product_id}"; repeated observations of the same
// product are distinct events, not distinct identities.
type Product struct {
	ID              string    `json:"id"`
	SourceID        string    `json:"source_id"`
	SourceProductID string    `json:"source_product_id"`
	Name            string    `json:"name"`
	Brand           string    `json:"brand,omitempty"`
	Category        string    `json:"category,omitempty"`
	InStock         bool      `json:"in_stock"`
	// NormalizedAt is an observability field, not part of identity.
	NormalizedAt time.Time `json:"normalized_at"`
}

// PricePoint is one price observation for a product.
type PricePoint struct {
	ProductID  string    `json:"product_id"`
	SourceID   string    `json:"source_id"`
	Amount     float64   `json:"amount"`
	Currency   string    `json:"currency"`
	ObservedAt time.Time `json:"observed_at"`
}

// Review is one review observation for a product. Rating is bounded to
// [0, 5] inclusive at normalisation time.
type Review struct {
	ID         string    `json:"id"`
	ProductID  string    `json:"product_id"`
	SourceID   string    `json:"source_id"`
	Rating     float64   `json:"rating"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Author     string    `json:"author,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
}

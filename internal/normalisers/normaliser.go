package normalisers

import (
	"fmt"
	"time"

	"github.com/custodia-labs/leafstream/internal/core/domain"
)

// DefaultCurrency is assumed when a raw price record carries no
// currency code.
const DefaultCurrency = "USD"

// ProductID computes the composite product identifier
// "{source_id}:{source_product_id}".
func ProductID(sourceID, sourceProductID string) string {
	return sourceID + ":" + sourceProductID
}

// ProductFromRaw maps a raw catalog record into a canonical Product.
// The in-stock flag comes from the matching price record, which is
// where upstream sources report availability.
func ProductFromRaw(source domain.Source, raw domain.RawRecord, inStock bool) (domain.Product, error) {
	sourceProductID, err := raw.String("source_product_id")
	if err != nil {
		return domain.Product{}, fmt.Errorf("product: %w", err)
	}
	name, err := raw.String("name")
	if err != nil {
		return domain.Product{}, fmt.Errorf("product %s: %w", sourceProductID, err)
	}

	return domain.Product{
		ID:              ProductID(source.ID, sourceProductID),
		SourceID:        source.ID,
		SourceProductID: sourceProductID,
		Name:            name,
		Brand:           raw.OptString("brand"),
		Category:        raw.OptString("category"),
		InStock:         inStock,
		NormalizedAt:    time.Now().UTC(),
	}, nil
}

// PriceFromRaw maps a raw price record into a canonical PricePoint,
// coercing the amount to a number and defaulting the currency.
func PriceFromRaw(source domain.Source, productID string, raw domain.RawRecord) (domain.PricePoint, error) {
	amount, err := raw.Float("amount")
	if err != nil {
		return domain.PricePoint{}, fmt.Errorf("price %s: %w", productID, err)
	}
	if amount < 0 {
		return domain.PricePoint{}, fmt.Errorf("price %s: %w: negative amount %.2f", productID, domain.ErrMalformedRecord, amount)
	}
	observedAt, err := raw.Time("observed_at")
	if err != nil {
		return domain.PricePoint{}, fmt.Errorf("price %s: %w", productID, err)
	}

	currency := raw.OptString("currency")
	if currency == "" {
		currency = DefaultCurrency
	}

	return domain.PricePoint{
		ProductID:  productID,
		SourceID:   source.ID,
		Amount:     amount,
		Currency:   currency,
		ObservedAt: observedAt,
	}, nil
}

// ReviewFromRaw maps a raw review record into a canonical Review,
// coercing the rating to a number and the identifier to a string.
func ReviewFromRaw(source domain.Source, productID string, raw domain.RawRecord) (domain.Review, error) {
	id, err := raw.String("id")
	if err != nil {
		return domain.Review{}, fmt.Errorf("review %s: %w", productID, err)
	}
	rating, err := raw.Float("rating")
	if err != nil {
		return domain.Review{}, fmt.Errorf("review %s: %w", id, err)
	}
	if rating < 0 || rating > 5 {
		return domain.Review{}, fmt.Errorf("review %s: %w: rating %.1f outside [0,5]", id, domain.ErrMalformedRecord, rating)
	}
	title, err := raw.String("title")
	if err != nil {
		return domain.Review{}, fmt.Errorf("review %s: %w", id, err)
	}
	body, err := raw.String("body")
	if err != nil {
		return domain.Review{}, fmt.Errorf("review %s: %w", id, err)
	}
	observedAt, err := raw.Time("observed_at")
	if err != nil {
		return domain.Review{}, fmt.Errorf("review %s: %w", id, err)
	}

	return domain.Review{
		ID:         id,
		ProductID:  productID,
		SourceID:   source.ID,
		Rating:     rating,
		Title:      title,
		Body:       body,
		Author:     raw.OptString("author"),
		ObservedAt: observedAt,
	}, nil
}

// Package httpjson provides the generic connector for sources that
// expose direct JSON API endpoints.
//
// Endpoint URLs and an optional bearer token come from the source's
// provider configuration. Every fetch is best-effort: transport
// errors, timeouts, non-2xx statuses and malformed JSON all degrade to
// an empty record slice and are logged, never returned.
package httpjson

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/leafstream/internal/core/domain"
	"github.com/custodia-labs/leafstream/internal/core/ports/driven"
	"github.com/custodia-labs/leafstream/internal/logger"
)

const (
	// RequestTimeout bounds a single fetch so that a hung source
	// cannot block scheduler shutdown.
	RequestTimeout = 20 * time.Second

	// MaxResponseBytes caps the response body read per request.
	MaxResponseBytes = 8 << 20

	// userAgent identifies the aggregator to upstream sources.
	userAgent = "LeafstreamBot/0.3"

	// throttleRate is the proactive per-source request rate. Sources
	// are polled on multi-second intervals; two requests per second
	// leaves headroom for the three fetches of one cycle without
	// hammering an endpoint on short intervals.
	throttleRate = 2.0
	throttleBurst = 3
)

// Provider configuration keys consumed by this connector.
const (
	ConfigCatalogEndpoint = "catalog_endpoint"
	ConfigPricesEndpoint  = "prices_endpoint"
	ConfigReviewsEndpoint = "reviews_endpoint"
	ConfigAPIToken        = "api_token"
)

// wrapperKeys are conventional envelope keys unwrapped from JSON
// object responses, in precedence order.
var wrapperKeys = []string{"items", "results", "data"}

// Ensure Connector implements the interface.
var _ driven.SourceConnector = (*Connector)(nil)

// Connector fetches raw records from configured JSON endpoints.
type Connector struct {
	source   domain.Source
	client   *http.Client
	throttle *rate.Limiter
}

// New creates a connector bound to the source. When the provider
// configuration carries an API token, requests go through an oauth2
// transport that injects the bearer header.
func New(source domain.Source) *Connector {
	client := &http.Client{Timeout: RequestTimeout}
	if token := source.ProviderConfig[ConfigAPIToken]; token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		client = oauth2.NewClient(context.Background(), ts)
		client.Timeout = RequestTimeout
	}
	return &Connector{
		source:   source,
		client:   client,
		throttle: rate.NewLimiter(rate.Limit(throttleRate), throttleBurst),
	}
}

// Provider returns the generic provider kind.
func (c *Connector) Provider() domain.Provider { return domain.ProviderGeneric }

// SourceID returns the bound source's ID.
func (c *Connector) SourceID() string { return c.source.ID }

// FetchCatalog fetches the configured catalog endpoint.
func (c *Connector) FetchCatalog(ctx context.Context) []domain.RawRecord {
	return c.fetchEndpoint(ctx, ConfigCatalogEndpoint)
}

// FetchPrices fetches the configured prices endpoint.
func (c *Connector) FetchPrices(ctx context.Context) []domain.RawRecord {
	return c.fetchEndpoint(ctx, ConfigPricesEndpoint)
}

// FetchReviews fetches the configured reviews endpoint.
func (c *Connector) FetchReviews(ctx context.Context) []domain.RawRecord {
	return c.fetchEndpoint(ctx, ConfigReviewsEndpoint)
}

// fetchEndpoint performs one request against the endpoint named by the
// given configuration field. A missing endpoint configuration yields
// an empty slice, not an error: not every source exposes all three
// feeds.
func (c *Connector) fetchEndpoint(ctx context.Context, field string) []domain.RawRecord {
	endpoint := c.source.ProviderConfig[field]
	if endpoint == "" {
		return nil
	}

	if err := c.throttle.Wait(ctx); err != nil {
		return nil
	}

	payload, err := c.get(ctx, endpoint)
	if err != nil {
		logger.Debug("httpjson: %s %s: %v", c.source.ID, field, err)
		return nil
	}
	return unwrapRecords(payload)
}

func (c *Connector) get(ctx context.Context, endpoint string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// unwrapRecords accepts a JSON array directly, or unwraps the first
// present conventional wrapper key from a JSON object. Anything else
// yields nil.
func unwrapRecords(payload json.RawMessage) []domain.RawRecord {
	var records []domain.RawRecord
	if err := json.Unmarshal(payload, &records); err == nil {
		return records
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil
	}
	for _, key := range wrapperKeys {
		inner, ok := envelope[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(inner, &records); err == nil {
			return records
		}
	}
	return nil
}

package domain

import (
	"fmt"
	"time"
)

// RobotsMode controls the advisory robots.txt posture for a source.
// It is recorded on the source but does not gate fetches in the
// ingestion core.
type RobotsMode string

const (
	RobotsRespect RobotsMode = "respect"
	RobotsIgnore  RobotsMode = "ignore"
)

// Provider identifies which connector variant serves a source.
type Provider string

const (
	// ProviderMock is the reference connector used to validate the
	// pipeline without network dependencies.
	ProviderMock Provider = "mock"

	// ProviderGeneric is the generic HTTP-JSON connector for sources
	// that expose direct API endpoints.
	ProviderGeneric Provider = "generic"
)

// Source is the identity and polling configuration for one upstream
// origin. Sources are created once at process start from external
// configuration and never mutated; the ID is immutable.
type Source struct {
	// ID is the globally unique, stable identifier for the source.
	ID string `json:"id" toml:"id"`

	// Name is the human-readable display name.
	Name string `json:"name" toml:"name"`

	// BaseURL is the source's base endpoint.
	BaseURL string `json:"base_url" toml:"base_url"`

	// CrawlIntervalSeconds is the polling cadence. Must be positive.
	CrawlIntervalSeconds int `json:"crawl_interval_seconds" toml:"crawl_interval_seconds"`

	// RobotsMode is advisory only in this core.
	RobotsMode RobotsMode `json:"robots_mode" toml:"robots_mode"`

	// Provider selects the connector variant to construct.
	Provider Provider `json:"provider" toml:"provider"`

	// ProviderConfig carries opaque connector-specific settings, e.g.
	// the catalog/prices/reviews endpoints and API token for the
	// generic HTTP connector.
	ProviderConfig map[string]string `json:"provider_config" toml:"provider_config"`
}

// Interval returns the polling cadence as a duration.
func (s Source) Interval() time.Duration {
	return time.Duration(s.CrawlIntervalSeconds) * time.Second
}

// Validate checks the structural invariants of a source.
func (s Source) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: source id is required", ErrInvalidInput)
	}
	if s.CrawlIntervalSeconds < 1 {
		return fmt.Errorf("%w: crawl interval must be at least 1s, got %d", ErrInvalidInput, s.CrawlIntervalSeconds)
	}
	switch s.RobotsMode {
	case RobotsRespect, RobotsIgnore:
	default:
		return fmt.Errorf("%w: unknown robots mode %q", ErrInvalidInput, s.RobotsMode)
	}
	return nil
}

// SourceHealth summarises the most recent successful observation for a
// source, derived from accumulated ingestion events.
type SourceHealth struct {
	SourceID             string    `json:"source_id"`
	SourceName           string    `json:"source_name"`
	BaseURL              string    `json:"base_url"`
	CrawlIntervalSeconds int       `json:"crawl_interval_seconds"`
	LastSync             time.Time `json:"last_sync"`
}

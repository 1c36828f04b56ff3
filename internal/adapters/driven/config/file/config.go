// Package file loads the TOML runtime configuration. The config file
// declares explicit sources and per-source overrides applied on top of
// sources derived from the dispensary directory.
package file

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/leafstream/internal/core/domain"
)

// Defaults applied when the config file omits a value.
const (
	DefaultHTTPAddr             = ":8080"
	DefaultCrawlIntervalSeconds = 900
)

// SourceOverride adjusts one directory-derived source, keyed by
// source ID in the [overrides] table.
type SourceOverride struct {
	Provider             string            `toml:"provider"`
	BaseURL              string            `toml:"base_url"`
	CrawlIntervalSeconds int               `toml:"crawl_interval_seconds"`
	RobotsMode           string            `toml:"robots_mode"`
	ProviderConfig       map[string]string `toml:"provider_config"`
}

// Config is the full runtime configuration.
type Config struct {
	// DataDir is where the event logs and history database live.
	// Defaults to ~/.leafstream/data.
	DataDir string `toml:"data_dir"`

	// HTTPAddr is the listen address for the HTTP API.
	HTTPAddr string `toml:"http_addr"`

	// DirectoryFile is the path to the dispensary directory JSON.
	// Empty disables directory-derived sources.
	DirectoryFile string `toml:"directory_file"`

	// DefaultCrawlIntervalSeconds applies to sources that do not set
	// their own interval.
	DefaultCrawlIntervalSeconds int `toml:"default_crawl_interval_seconds"`

	// Verbose enables debug logging.
	Verbose bool `toml:"verbose"`

	// Sources are explicitly configured sources, polled as declared.
	Sources []domain.Source `toml:"sources"`

	// Overrides adjust directory-derived sources by source ID.
	Overrides map[string]SourceOverride `toml:"overrides"`
}

// Load reads the configuration from path. A missing file yields the
// defaults; a malformed or invalid file is an error.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DefaultPath returns the default config file location,
// ~/.leafstream/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".leafstream", "config.toml"), nil
}

func defaults() *Config {
	return &Config{
		HTTPAddr:                    DefaultHTTPAddr,
		DefaultCrawlIntervalSeconds: DefaultCrawlIntervalSeconds,
	}
}

// applyDefaults fills source-level gaps after decoding.
func (c *Config) applyDefaults() {
	if c.HTTPAddr == "" {
		c.HTTPAddr = DefaultHTTPAddr
	}
	if c.DefaultCrawlIntervalSeconds < 1 {
		c.DefaultCrawlIntervalSeconds = DefaultCrawlIntervalSeconds
	}
	for i := range c.Sources {
		if c.Sources[i].CrawlIntervalSeconds < 1 {
			c.Sources[i].CrawlIntervalSeconds = c.DefaultCrawlIntervalSeconds
		}
		if c.Sources[i].RobotsMode == "" {
			c.Sources[i].RobotsMode = domain.RobotsRespect
		}
		if c.Sources[i].Provider == "" {
			c.Sources[i].Provider = domain.ProviderGeneric
		}
	}
}

func (c *Config) validate() error {
	seen := make(map[string]struct{}, len(c.Sources))
	for _, source := range c.Sources {
		if err := source.Validate(); err != nil {
			return fmt.Errorf("source %q: %w", source.ID, err)
		}
		if _, dup := seen[source.ID]; dup {
			return fmt.Errorf("%w: duplicate source id %q", domain.ErrInvalidInput, source.ID)
		}
		seen[source.ID] = struct{}{}
	}
	return nil
}

// Apply merges an override into a source, leaving unset fields alone.
func (o SourceOverride) Apply(source domain.Source) domain.Source {
	if o.Provider != "" {
		source.Provider = domain.Provider(o.Provider)
	}
	if o.BaseURL != "" {
		source.BaseURL = o.BaseURL
	}
	if o.CrawlIntervalSeconds > 0 {
		source.CrawlIntervalSeconds = o.CrawlIntervalSeconds
	}
	if o.RobotsMode != "" {
		source.RobotsMode = domain.RobotsMode(o.RobotsMode)
	}
	if len(o.ProviderConfig) > 0 {
		merged := make(map[string]string, len(source.ProviderConfig)+len(o.ProviderConfig))
		for k, v := range source.ProviderConfig {
			merged[k] = v
		}
		for k, v := range o.ProviderConfig {
			merged[k] = v
		}
		source.ProviderConfig = merged
	}
	return source
}

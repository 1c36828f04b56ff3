// Package directory loads the static Pennsylvania medical dispensary
// directory from a JSON file and derives polling sources from it.
package directory

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/custodia-labs/leafstream/internal/core/domain"
	"github.com/custodia-labs/leafstream/internal/core/ports/driven"
)

var _ driven.DispensaryDirectory = (*Directory)(nil)

// Directory holds the dispensary entries loaded from a JSON file.
// Entries can be reloaded at runtime; derived sources are built once
// at startup and are not affected by reloads.
type Directory struct {
	path string

	mu      sync.RWMutex
	entries []domain.Dispensary
}

// Load reads the directory file and returns a Directory.
func Load(path string) (*Directory, error) {
	d := &Directory{path: path}
	if err := d.Reload(); err != nil {
		return nil, err
	}
	return d, nil
}

// Reload re-reads the directory file, replacing the current entries.
// On error the previous entries are kept.
func (d *Directory) Reload() error {
	data, err := os.ReadFile(d.path)
	if err != nil {
		return fmt.Errorf("reading directory %s: %w", d.path, err)
	}

	var entries []domain.Dispensary
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parsing directory %s: %w", d.path, err)
	}

	d.mu.Lock()
	d.entries = entries
	d.mu.Unlock()
	return nil
}

// Dispensaries returns the current directory entries.
func (d *Directory) Dispensaries() []domain.Dispensary {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]domain.Dispensary, len(d.entries))
	copy(out, d.entries)
	return out
}

// Path returns the directory file path.
func (d *Directory) Path() string {
	return d.path
}

// SourceID derives the stable source identifier for a dispensary.
func SourceID(disp domain.Dispensary) string {
	return fmt.Sprintf("pa-%s-%s-%s", slug(disp.Permittee), slug(disp.LocationName), slug(disp.City))
}

// SourceFor derives a polling source from one dispensary entry.
func SourceFor(disp domain.Dispensary, intervalSeconds int) domain.Source {
	return domain.Source{
		ID:                   SourceID(disp),
		Name:                 fmt.Sprintf("%s - %s, %s", disp.Permittee, disp.LocationName, disp.City),
		BaseURL:              disp.Website,
		CrawlIntervalSeconds: intervalSeconds,
		RobotsMode:           domain.RobotsRespect,
		Provider:             domain.ProviderMock,
	}
}

// BuildSources derives one source per current directory entry.
func (d *Directory) BuildSources(intervalSeconds int) []domain.Source {
	entries := d.Dispensaries()
	sources := make([]domain.Source, 0, len(entries))
	for _, disp := range entries {
		sources = append(sources, SourceFor(disp, intervalSeconds))
	}
	return sources
}

// slug lowercases and replaces non-alphanumeric runs with single
// hyphens.
func slug(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	lastHyphen := false
	for _, r := range strings.ToLower(value) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastHyphen = false
		} else if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.Trim(b.String(), "-")
}

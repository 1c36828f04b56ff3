// Package jsonl provides the durable event repository.
//
// Accepted events are appended to two line-delimited JSON logs under
// the data directory: raw_records.jsonl holds the original source
// payloads, normalized_records.jsonl the fully normalised events, one
// line per accepted event in acceptance order. A third, in-memory
// buffer serves recent-events reads without touching disk.
//
// The buffer is unbounded across the process lifetime; the surrounding
// deployment bounds it via process restarts or an external cap.
package jsonl

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/custodia-labs/leafstream/internal/core/domain"
	"github.com/custodia-labs/leafstream/internal/core/ports/driven"
)

// Log file names under the data directory.
const (
	RawLogName        = "raw_records.jsonl"
	NormalizedLogName = "normalized_records.jsonl"
)

// Ensure Repository implements the interface.
var _ driven.EventRepository = (*Repository)(nil)

// Repository is the sole writer of persisted pipeline state. It is
// safe for use from many polling loops concurrently.
type Repository struct {
	mu             sync.Mutex
	rawPath        string
	normalizedPath string
	events         []domain.IngestionEvent
}

// NewRepository creates a repository rooted at dataDir, creating the
// directory if needed.
func NewRepository(dataDir string) (*Repository, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &Repository{
		rawPath:        filepath.Join(dataDir, RawLogName),
		normalizedPath: filepath.Join(dataDir, NormalizedLogName),
	}, nil
}

// Save appends the event to the raw log, the normalised log and the
// in-memory buffer as one logical unit. On any append error the event
// is considered not saved: it is not buffered and the error is
// returned. A torn raw line left by a mid-write failure is tolerated
// by log readers; the observation itself is retried on the next cycle
// because its ledger signature is only marked after Save succeeds.
func (r *Repository) Save(event domain.IngestionEvent) error {
	rawLine, err := json.Marshal(event.RawPayload)
	if err != nil {
		return fmt.Errorf("%w: marshal raw payload: %w", domain.ErrSaveFailed, err)
	}
	normalizedLine, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: marshal event: %w", domain.ErrSaveFailed, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := appendLine(r.rawPath, rawLine); err != nil {
		return fmt.Errorf("%w: raw log: %w", domain.ErrSaveFailed, err)
	}
	if err := appendLine(r.normalizedPath, normalizedLine); err != nil {
		return fmt.Errorf("%w: normalized log: %w", domain.ErrSaveFailed, err)
	}
	r.events = append(r.events, event)
	return nil
}

// RecentEvents returns the last limit buffered events, oldest first.
// Durable storage is never touched.
func (r *Repository) RecentEvents(limit int) []domain.IngestionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 || len(r.events) == 0 {
		return nil
	}
	start := len(r.events) - limit
	if start < 0 {
		start = 0
	}
	out := make([]domain.IngestionEvent, len(r.events)-start)
	copy(out, r.events[start:])
	return out
}

// SourceHealth derives per-source status by scanning the accumulated
// events: the most recent price observation wins. O(n) in event count,
// acceptable at the data volumes this buffer is designed for.
func (r *Repository) SourceHealth() []domain.SourceHealth {
	r.mu.Lock()
	defer r.mu.Unlock()

	byID := make(map[string]domain.SourceHealth)
	order := make([]string, 0)
	for _, event := range r.events {
		health, ok := byID[event.Source.ID]
		if !ok {
			order = append(order, event.Source.ID)
		}
		if !ok || event.Price.ObservedAt.After(health.LastSync) {
			byID[event.Source.ID] = domain.SourceHealth{
				SourceID:             event.Source.ID,
				SourceName:           event.Source.Name,
				BaseURL:              event.Source.BaseURL,
				CrawlIntervalSeconds: event.Source.CrawlIntervalSeconds,
				LastSync:             event.Price.ObservedAt,
			}
		}
	}

	out := make([]domain.SourceHealth, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out
}

// EventCount returns the number of buffered events.
func (r *Repository) EventCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func appendLine(path string, line []byte) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return err
	}
	return nil
}

package driven

import (
	"context"

	"github.com/custodia-labs/leafstream/internal/core/domain"
)

// PollHistoryStore persists per-source polling state and a capped
// history of cycle results. The scheduler writes to it best-effort
// after every cycle; a failing history store never blocks ingestion.
type PollHistoryStore interface {
	// GetTask retrieves the polling state for a source.
	// Returns nil and no error if the task does not exist.
	GetTask(ctx context.Context, sourceID string) (*domain.PollTask, error)

	// ListTasks returns polling state for all known sources.
	ListTasks(ctx context.Context) ([]domain.PollTask, error)

	// SaveTask creates or updates a task's state.
	SaveTask(ctx context.Context, task *domain.PollTask) error

	// RecordResult appends a cycle result to the history.
	RecordResult(ctx context.Context, result *domain.PollResult) error

	// PruneHistory trims each source's history to the most recent
	// keep results.
	PruneHistory(ctx context.Context, keep int) error

	// ResultsFor returns up to limit recorded cycle results for a
	// source, newest first.
	ResultsFor(ctx context.Context, sourceID string, limit int) ([]domain.PollResult, error)
}

// DispensaryDirectory exposes the static reference directory of
// Pennsylvania medical dispensaries.
type DispensaryDirectory interface {
	// Dispensaries returns the current directory entries.
	Dispensaries() []domain.Dispensary
}

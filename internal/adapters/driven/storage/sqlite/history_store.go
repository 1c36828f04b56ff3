package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/custodia-labs/leafstream/internal/core/domain"
	"github.com/custodia-labs/leafstream/internal/core/ports/driven"
)

// historyStore implements driven.PollHistoryStore.
type historyStore struct {
	store *Store
}

var _ driven.PollHistoryStore = (*historyStore)(nil)

// SaveTask stores or updates the polling state for a source.
func (s *historyStore) SaveTask(ctx context.Context, task *domain.PollTask) error {
	if task.SourceID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO poll_tasks (source_id, source_name, interval_seconds, last_run, last_success, last_error, next_run)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id) DO UPDATE SET
			source_name = excluded.source_name,
			interval_seconds = excluded.interval_seconds,
			last_run = excluded.last_run,
			last_success = excluded.last_success,
			last_error = excluded.last_error,
			next_run = excluded.next_run
	`, task.SourceID, task.SourceName, task.IntervalSeconds,
		nullTime(task.LastRun), nullTime(task.LastSuccess), task.LastError, nullTime(task.NextRun))

	if err != nil {
		return fmt.Errorf("saving poll task: %w", err)
	}
	return nil
}

// GetTask retrieves the polling state for a source.
func (s *historyStore) GetTask(ctx context.Context, sourceID string) (*domain.PollTask, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT source_id, source_name, interval_seconds, last_run, last_success, last_error, next_run
		FROM poll_tasks WHERE source_id = ?
	`, sourceID)

	task, err := scanTask(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return task, err
}

// ListTasks returns the polling state for all known sources.
func (s *historyStore) ListTasks(ctx context.Context) ([]domain.PollTask, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT source_id, source_name, interval_seconds, last_run, last_success, last_error, next_run
		FROM poll_tasks ORDER BY source_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying poll tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.PollTask //nolint:prealloc // size unknown from query
	for rows.Next() {
		task, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating poll tasks: %w", err)
	}

	return tasks, nil
}

// RecordResult appends one cycle outcome to the history.
func (s *historyStore) RecordResult(ctx context.Context, result *domain.PollResult) error {
	if result.SourceID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO poll_results (source_id, started_at, ended_at, events_saved, error_count, heartbeat, success, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, result.SourceID, result.StartedAt, result.EndedAt, result.EventsSaved,
		result.ErrorCount, boolInt(result.Heartbeat), boolInt(result.Success), result.Error)

	if err != nil {
		return fmt.Errorf("recording poll result: %w", err)
	}
	return nil
}

// PruneHistory keeps only the most recent keep results per source.
func (s *historyStore) PruneHistory(ctx context.Context, keep int) error {
	if keep <= 0 {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM poll_results WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY source_id ORDER BY id DESC) AS rank
				FROM poll_results
			) WHERE rank > ?
		)
	`, keep)

	if err != nil {
		return fmt.Errorf("pruning poll results: %w", err)
	}
	return nil
}

// ResultsFor returns the recorded cycle history for a source,
// newest first.
func (s *historyStore) ResultsFor(ctx context.Context, sourceID string, limit int) ([]domain.PollResult, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT source_id, started_at, ended_at, events_saved, error_count, heartbeat, success, error
		FROM poll_results WHERE source_id = ?
		ORDER BY id DESC LIMIT ?
	`, sourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying poll results: %w", err)
	}
	defer rows.Close()

	var results []domain.PollResult //nolint:prealloc // size unknown from query
	for rows.Next() {
		var result domain.PollResult
		var heartbeat, success int
		if err := rows.Scan(&result.SourceID, &result.StartedAt, &result.EndedAt,
			&result.EventsSaved, &result.ErrorCount, &heartbeat, &success, &result.Error); err != nil {
			return nil, fmt.Errorf("scanning poll result: %w", err)
		}
		result.Heartbeat = heartbeat != 0
		result.Success = success != 0
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating poll results: %w", err)
	}

	return results, nil
}

// scanTask scans one poll task row via a Scan function, so it works
// for both *sql.Row and *sql.Rows.
func scanTask(scan func(dest ...any) error) (*domain.PollTask, error) {
	var task domain.PollTask
	var lastRun, lastSuccess, nextRun sql.NullTime
	if err := scan(&task.SourceID, &task.SourceName, &task.IntervalSeconds,
		&lastRun, &lastSuccess, &task.LastError, &nextRun); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning poll task: %w", err)
	}

	if lastRun.Valid {
		task.LastRun = lastRun.Time
	}
	if lastSuccess.Valid {
		task.LastSuccess = lastSuccess.Time
	}
	if nextRun.Valid {
		task.NextRun = nextRun.Time
	}

	return &task, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

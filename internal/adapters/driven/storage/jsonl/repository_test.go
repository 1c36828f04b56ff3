package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/leafstream/internal/core/domain"
)

func testEvent(sourceID, productID string, observedAt time.Time) domain.IngestionEvent {
	source := domain.Source{
		ID:                   sourceID,
		Name:                 "Test Dispensary",
		BaseURL:              "https://test.example.com",
		CrawlIntervalSeconds: 10,
		RobotsMode:           domain.RobotsRespect,
		Provider:             domain.ProviderMock,
	}
	fullID := sourceID + ":" + productID
	return domain.IngestionEvent{
		ID:     fmt.Sprintf("%s-%d", fullID, observedAt.UnixNano()),
		Source: source,
		Product: domain.Product{
			ID:              fullID,
			SourceID:        sourceID,
			SourceProductID: productID,
			Name:            "Blue Dream 3.5g",
			InStock:         true,
			NormalizedAt:    observedAt,
		},
		Price: domain.PricePoint{
			ProductID:  fullID,
			SourceID:   sourceID,
			Amount:     24.5,
			Currency:   "USD",
			ObservedAt: observedAt,
		},
		Review: domain.Review{
			ID:         "r-1",
			ProductID:  fullID,
			SourceID:   sourceID,
			Rating:     4.5,
			Title:      "Live feedback",
			Body:       "Great effects and flavor.",
			ObservedAt: observedAt,
		},
		RawPayload: domain.RawPayload{
			Source:      source,
			RawProduct:  domain.RawRecord{"source_product_id": productID},
			RawPrice:    domain.RawRecord{"amount": 24.5},
			RawReview:   domain.RawRecord{"id": "r-1"},
			IngestedAt:  observedAt,
			ParseStatus: domain.ParseStatusOK,
		},
	}
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		count++
	}
	require.NoError(t, scanner.Err())
	return count
}

func TestSave_AppendsBothLogsAndBuffer(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewRepository(dir)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.Save(testEvent("pa-demo", "flower-001", now)))
	require.NoError(t, repo.Save(testEvent("pa-demo", "vape-002", now)))

	assert.Equal(t, 2, countLines(t, filepath.Join(dir, RawLogName)))
	assert.Equal(t, 2, countLines(t, filepath.Join(dir, NormalizedLogName)))
	assert.Equal(t, 2, repo.EventCount())
}

func TestSave_RawLineRoundTrips(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewRepository(dir)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.Save(testEvent("pa-demo", "flower-001", now)))

	data, err := os.ReadFile(filepath.Join(dir, RawLogName))
	require.NoError(t, err)

	var payload domain.RawPayload
	require.NoError(t, json.Unmarshal(data[:len(data)-1], &payload))
	assert.Equal(t, domain.ParseStatusOK, payload.ParseStatus)
	assert.Equal(t, "pa-demo", payload.Source.ID)
}

func TestSave_FailureLeavesEventUnbuffered(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewRepository(dir)
	require.NoError(t, err)

	// Replace the raw log path with a directory so the append fails.
	require.NoError(t, os.Mkdir(filepath.Join(dir, RawLogName), 0o700))

	err = repo.Save(testEvent("pa-demo", "flower-001", time.Now().UTC()))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSaveFailed)
	assert.Equal(t, 0, repo.EventCount())
	assert.Empty(t, repo.RecentEvents(10))
}

func TestRecentEvents_TrimsToLimit(t *testing.T) {
	repo, err := NewRepository(t.TempDir())
	require.NoError(t, err)

	base := time.Now().UTC()
	for i := range 5 {
		require.NoError(t, repo.Save(testEvent("pa-demo", fmt.Sprintf("p-%d", i), base.Add(time.Duration(i)*time.Second))))
	}

	recent := repo.RecentEvents(3)
	require.Len(t, recent, 3)
	// Most-recent-last ordering.
	assert.Equal(t, "pa-demo:p-2", recent[0].Product.ID)
	assert.Equal(t, "pa-demo:p-4", recent[2].Product.ID)

	assert.Len(t, repo.RecentEvents(100), 5)
	assert.Empty(t, repo.RecentEvents(0))
}

func TestSourceHealth_LastSyncIsMostRecentObservation(t *testing.T) {
	repo, err := NewRepository(t.TempDir())
	require.NoError(t, err)

	base := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Save(testEvent("pa-demo", "a", base)))
	require.NoError(t, repo.Save(testEvent("pa-demo", "b", base.Add(2*time.Second))))
	require.NoError(t, repo.Save(testEvent("pa-demo", "c", base.Add(time.Second))))
	require.NoError(t, repo.Save(testEvent("pa-other", "a", base)))

	health := repo.SourceHealth()
	require.Len(t, health, 2)

	assert.Equal(t, "pa-demo", health[0].SourceID)
	assert.Equal(t, base.Add(2*time.Second), health[0].LastSync)
	assert.Equal(t, 10, health[0].CrawlIntervalSeconds)
	assert.Equal(t, "pa-other", health[1].SourceID)
}

func TestSourceHealth_EmptyRepository(t *testing.T) {
	repo, err := NewRepository(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, repo.SourceHealth())
}

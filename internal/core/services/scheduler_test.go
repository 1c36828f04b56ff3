package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/leafstream/internal/adapters/driven/broker"
	"github.com/custodia-labs/leafstream/internal/adapters/driven/ledger"
	"github.com/custodia-labs/leafstream/internal/adapters/driven/storage/jsonl"
	"github.com/custodia-labs/leafstream/internal/core/domain"
	"github.com/custodia-labs/leafstream/internal/core/ports/driven"
)

// stubConnector returns fixed record slices and counts fetches.
type stubConnector struct {
	mu      sync.Mutex
	source  domain.Source
	catalog []domain.RawRecord
	prices  []domain.RawRecord
	reviews []domain.RawRecord
	fetches int
}

func (c *stubConnector) Provider() domain.Provider { return c.source.Provider }
func (c *stubConnector) SourceID() string          { return c.source.ID }

func (c *stubConnector) FetchCatalog(context.Context) []domain.RawRecord {
	c.mu.Lock()
	c.fetches++
	c.mu.Unlock()
	return c.catalog
}
func (c *stubConnector) FetchPrices(context.Context) []domain.RawRecord  { return c.prices }
func (c *stubConnector) FetchReviews(context.Context) []domain.RawRecord { return c.reviews }

func (c *stubConnector) fetchCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetches
}

// stubFactory hands out a fixed connector for every source.
type stubFactory struct {
	connector driven.SourceConnector
}

func (f *stubFactory) Create(domain.Source) (driven.SourceConnector, error) { return f.connector, nil }
func (f *stubFactory) Register(domain.Provider, driven.ConnectorBuilder)    {}
func (f *stubFactory) SupportedProviders() []domain.Provider               { return nil }

// flakyRepository fails the first failures saves, then delegates.
type flakyRepository struct {
	driven.EventRepository
	mu       sync.Mutex
	failures int
}

func (r *flakyRepository) Save(event domain.IngestionEvent) error {
	r.mu.Lock()
	shouldFail := r.failures > 0
	if shouldFail {
		r.failures--
	}
	r.mu.Unlock()
	if shouldFail {
		return fmt.Errorf("%w: disk full", domain.ErrSaveFailed)
	}
	return r.EventRepository.Save(event)
}

// memoryHistory records history calls in memory.
type memoryHistory struct {
	mu      sync.Mutex
	tasks   map[string]domain.PollTask
	results []domain.PollResult
	pruned  int
}

func newMemoryHistory() *memoryHistory {
	return &memoryHistory{tasks: make(map[string]domain.PollTask)}
}

func (h *memoryHistory) GetTask(_ context.Context, sourceID string) (*domain.PollTask, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	task, ok := h.tasks[sourceID]
	if !ok {
		return nil, nil
	}
	return &task, nil
}

func (h *memoryHistory) ListTasks(context.Context) ([]domain.PollTask, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]domain.PollTask, 0, len(h.tasks))
	for _, task := range h.tasks {
		out = append(out, task)
	}
	return out, nil
}

func (h *memoryHistory) SaveTask(_ context.Context, task *domain.PollTask) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tasks[task.SourceID] = *task
	return nil
}

func (h *memoryHistory) RecordResult(_ context.Context, result *domain.PollResult) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.results = append(h.results, *result)
	return nil
}

func (h *memoryHistory) ResultsFor(_ context.Context, sourceID string, limit int) ([]domain.PollResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []domain.PollResult
	for i := len(h.results) - 1; i >= 0 && len(out) < limit; i-- {
		if h.results[i].SourceID == sourceID {
			out = append(out, h.results[i])
		}
	}
	return out, nil
}

func (h *memoryHistory) PruneHistory(context.Context, int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pruned++
	return nil
}

func testSource() domain.Source {
	return domain.Source{
		ID:                   "pa-demo",
		Name:                 "Demo Dispensary",
		BaseURL:              "https://demo.example.com",
		CrawlIntervalSeconds: 1,
		RobotsMode:           domain.RobotsRespect,
		Provider:             domain.ProviderMock,
	}
}

// fixedRecords returns a byte-identical catalog/prices/reviews triple
// for n products, with stable observed_at timestamps.
func fixedRecords(n int) (catalog, prices, reviews []domain.RawRecord) {
	for i := range n {
		id := fmt.Sprintf("prod-%03d", i)
		catalog = append(catalog, domain.RawRecord{
			"source_product_id": id,
			"name":              "Product " + id,
			"brand":             "North Farm",
			"category":          "Flower",
		})
		prices = append(prices, domain.RawRecord{
			"source_product_id": id,
			"amount":            20.0 + float64(i),
			"currency":          "USD",
			"observed_at":       fmt.Sprintf("2026-08-29T10:00:%02dZ", i),
			"in_stock":          true,
		})
		reviews = append(reviews, domain.RawRecord{
			"source_product_id": id,
			"id":                "r-" + id,
			"rating":            4.5,
			"title":             "Live feedback",
			"body":              "Would buy again.",
			"observed_at":       fmt.Sprintf("2026-08-29T10:00:%02dZ", i),
		})
	}
	return catalog, prices, reviews
}

func newTestScheduler(t *testing.T, conn driven.SourceConnector, opts ...Option) (*Scheduler, *jsonl.Repository, *broker.Broker) {
	t.Helper()
	repo, err := jsonl.NewRepository(t.TempDir())
	require.NoError(t, err)
	hub := broker.New()
	s := NewScheduler(repo, hub, ledger.New(), &stubFactory{connector: conn}, []domain.Source{testSource()}, opts...)
	return s, repo, hub
}

func drain(sub *driven.Subscription) []string {
	var out []string
	for {
		select {
		case msg := <-sub.C:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestIngestOnce_SavesAndPublishesJoinedProducts(t *testing.T) {
	catalog, prices, reviews := fixedRecords(3)
	conn := &stubConnector{source: testSource(), catalog: catalog, prices: prices, reviews: reviews}
	s, repo, hub := newTestScheduler(t, conn)

	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	result := s.ingestOnce(context.Background(), testSource(), conn)

	assert.Equal(t, 3, result.EventsSaved)
	assert.Zero(t, result.ErrorCount)
	assert.False(t, result.Heartbeat)
	assert.True(t, result.Success)

	events := repo.RecentEvents(10)
	require.Len(t, events, 3)
	for _, event := range events {
		assert.Equal(t, domain.ParseStatusOK, event.RawPayload.ParseStatus)
		assert.NotEmpty(t, event.ID)
		assert.NotZero(t, event.Product.ID)
		assert.NotZero(t, event.Price.Amount)
		assert.NotEmpty(t, event.Review.ID)
	}

	// Publish order matches catalog iteration order.
	messages := drain(sub)
	require.Len(t, messages, 3)
	for i, msg := range messages {
		var update domain.PriceUpdateEvent
		require.NoError(t, json.Unmarshal([]byte(msg), &update))
		assert.Equal(t, domain.EventTypePriceUpdate, update.Type)
		assert.Equal(t, fmt.Sprintf("pa-demo:prod-%03d", i), update.Product.ID)
	}

	// Source health reflects the most recent price observation.
	health := repo.SourceHealth()
	require.Len(t, health, 1)
	assert.Equal(t, "pa-demo", health[0].SourceID)
	assert.Equal(t, time.Date(2026, 8, 29, 10, 0, 2, 0, time.UTC), health[0].LastSync)
}

func TestIngestOnce_HeartbeatOnEmptyCatalog(t *testing.T) {
	conn := &stubConnector{source: testSource()}
	s, repo, hub := newTestScheduler(t, conn)

	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	result := s.ingestOnce(context.Background(), testSource(), conn)

	assert.True(t, result.Heartbeat)
	assert.Zero(t, result.EventsSaved)
	assert.Equal(t, 0, repo.EventCount(), "heartbeats are never persisted")

	messages := drain(sub)
	require.Len(t, messages, 1)

	var heartbeat domain.HeartbeatEvent
	require.NoError(t, json.Unmarshal([]byte(messages[0]), &heartbeat))
	assert.Equal(t, domain.EventTypeHeartbeat, heartbeat.Type)
	assert.Equal(t, "pa-demo", heartbeat.SourceID)
	assert.NotEmpty(t, heartbeat.Message)
	assert.False(t, heartbeat.Timestamp.IsZero())
}

func TestIngestOnce_RepollWithoutNewDataProducesNoDuplicates(t *testing.T) {
	catalog, prices, reviews := fixedRecords(3)
	conn := &stubConnector{source: testSource(), catalog: catalog, prices: prices, reviews: reviews}
	s, repo, _ := newTestScheduler(t, conn)

	first := s.ingestOnce(context.Background(), testSource(), conn)
	second := s.ingestOnce(context.Background(), testSource(), conn)

	assert.Equal(t, 3, first.EventsSaved)
	assert.Zero(t, second.EventsSaved, "byte-identical observations dedup silently")
	assert.Zero(t, second.ErrorCount)
	assert.Equal(t, 3, repo.EventCount())
}

func TestIngestOnce_SkipsProductsMissingPriceOrReview(t *testing.T) {
	catalog, prices, reviews := fixedRecords(3)
	// prod-000 loses its price, prod-001 its review.
	conn := &stubConnector{source: testSource(), catalog: catalog, prices: prices[1:], reviews: append([]domain.RawRecord{reviews[0]}, reviews[2:]...)}
	s, repo, _ := newTestScheduler(t, conn)

	result := s.ingestOnce(context.Background(), testSource(), conn)

	assert.Equal(t, 1, result.EventsSaved)
	assert.Zero(t, result.ErrorCount, "incomplete triples are skipped, not errors")

	events := repo.RecentEvents(10)
	require.Len(t, events, 1)
	assert.Equal(t, "pa-demo:prod-002", events[0].Product.ID)
}

func TestIngestOnce_MalformedRecordSkipsSingleProduct(t *testing.T) {
	catalog, prices, reviews := fixedRecords(3)
	prices[1]["amount"] = "not-a-number"
	conn := &stubConnector{source: testSource(), catalog: catalog, prices: prices, reviews: reviews}
	s, repo, _ := newTestScheduler(t, conn)

	result := s.ingestOnce(context.Background(), testSource(), conn)

	assert.Equal(t, 2, result.EventsSaved)
	assert.Equal(t, 1, result.ErrorCount)
	assert.Equal(t, 2, repo.EventCount())
}

func TestIngestOnce_FailedSaveIsRetriedNextCycle(t *testing.T) {
	catalog, prices, reviews := fixedRecords(1)
	conn := &stubConnector{source: testSource(), catalog: catalog, prices: prices, reviews: reviews}

	repo, err := jsonl.NewRepository(t.TempDir())
	require.NoError(t, err)
	flaky := &flakyRepository{EventRepository: repo, failures: 1}

	s := NewScheduler(flaky, broker.New(), ledger.New(), &stubFactory{connector: conn}, []domain.Source{testSource()})

	first := s.ingestOnce(context.Background(), testSource(), conn)
	assert.Zero(t, first.EventsSaved)
	assert.Equal(t, 1, first.ErrorCount)
	assert.Equal(t, 0, repo.EventCount())

	// The signature was not marked, so an identical re-read saves.
	second := s.ingestOnce(context.Background(), testSource(), conn)
	assert.Equal(t, 1, second.EventsSaved)
	assert.Equal(t, 1, repo.EventCount())
}

func TestIngestOnce_LastWinsOnDuplicateIDsWithinBatch(t *testing.T) {
	catalog, prices, reviews := fixedRecords(1)
	duplicate := domain.RawRecord{
		"source_product_id": "prod-000",
		"amount":            99.0,
		"currency":          "USD",
		"observed_at":       "2026-08-29T11:00:00Z",
	}
	conn := &stubConnector{source: testSource(), catalog: catalog, prices: append(prices, duplicate), reviews: reviews}
	s, repo, _ := newTestScheduler(t, conn)

	result := s.ingestOnce(context.Background(), testSource(), conn)

	require.Equal(t, 1, result.EventsSaved)
	events := repo.RecentEvents(1)
	require.Len(t, events, 1)
	assert.InDelta(t, 99.0, events[0].Price.Amount, 0.0001)
}

func TestIngestOnce_RecordsCycleHistory(t *testing.T) {
	catalog, prices, reviews := fixedRecords(2)
	conn := &stubConnector{source: testSource(), catalog: catalog, prices: prices, reviews: reviews}
	history := newMemoryHistory()
	s, _, _ := newTestScheduler(t, conn, WithHistory(history))

	source := testSource()
	result := s.ingestOnce(context.Background(), source, conn)
	s.recordCycle(context.Background(), source, result)

	task, err := history.GetTask(context.Background(), "pa-demo")
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, "Demo Dispensary", task.SourceName)
	assert.False(t, task.LastSuccess.IsZero())
	assert.Empty(t, task.LastError)

	require.Len(t, history.results, 1)
	assert.Equal(t, history.results[0].EndedAt.Add(source.Interval()), task.NextRun)
	assert.Equal(t, 2, history.results[0].EventsSaved)
	assert.Equal(t, 1, history.pruned)
}

func TestScheduler_StartStopLifecycle(t *testing.T) {
	conn := &stubConnector{source: testSource()}
	s, _, _ := newTestScheduler(t, conn)

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.Running())

	// Starting twice must not double-spawn loops.
	require.NoError(t, s.Start(context.Background()))

	require.Eventually(t, func() bool { return conn.fetchCount() >= 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Stop())
	assert.False(t, s.Running())

	// Stopped is terminal.
	assert.ErrorIs(t, s.Start(context.Background()), domain.ErrSchedulerStopped)
	assert.NoError(t, s.Stop())

	// No further cycles run after Stop.
	frozen := conn.fetchCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, frozen, conn.fetchCount())
}

func TestScheduler_StopBeforeStart(t *testing.T) {
	conn := &stubConnector{source: testSource()}
	s, _, _ := newTestScheduler(t, conn)

	require.NoError(t, s.Stop())
	assert.ErrorIs(t, s.Start(context.Background()), domain.ErrSchedulerStopped)
}

func TestScheduler_SkipsInvalidSources(t *testing.T) {
	conn := &stubConnector{source: testSource()}
	repo, err := jsonl.NewRepository(t.TempDir())
	require.NoError(t, err)

	invalid := testSource()
	invalid.CrawlIntervalSeconds = 0
	s := NewScheduler(repo, broker.New(), ledger.New(), &stubFactory{connector: conn}, []domain.Source{invalid})

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, s.Stop())

	assert.Zero(t, conn.fetchCount(), "invalid sources must not spawn loops")
}

func TestScheduler_ContextCancelStopsLoops(t *testing.T) {
	catalog, prices, reviews := fixedRecords(1)
	conn := &stubConnector{source: testSource(), catalog: catalog, prices: prices, reviews: reviews}
	s, _, _ := newTestScheduler(t, conn)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	require.Eventually(t, func() bool { return conn.fetchCount() >= 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	time.Sleep(50 * time.Millisecond)
	frozen := conn.fetchCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, frozen, conn.fetchCount())

	require.NoError(t, s.Stop())
}

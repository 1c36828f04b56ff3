package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/leafstream/internal/core/domain"
	"github.com/custodia-labs/leafstream/internal/core/ports/driven"
	"github.com/custodia-labs/leafstream/internal/core/ports/driving"
	"github.com/custodia-labs/leafstream/internal/logger"
	"github.com/custodia-labs/leafstream/internal/normalisers"
)

// historyKeep caps the per-source cycle history kept in the poll
// history store.
const historyKeep = 100

// Ensure Scheduler implements the interface.
var _ driving.Ingestor = (*Scheduler)(nil)

type schedulerState int

const (
	stateIdle schedulerState = iota
	statePolling
	stateStopped
)

// Scheduler orchestrates one independent polling loop per source.
// Independent loops, rather than a global round-robin, mean a slow or
// hung source cannot starve the others, and each source's cadence is
// respected exactly.
type Scheduler struct {
	repo    driven.EventRepository
	broker  driven.EventBroker
	ledger  driven.DedupLedger
	factory driven.ConnectorFactory
	sources []domain.Source

	history driven.PollHistoryStore // optional
	now     func() time.Time

	mu     sync.Mutex
	state  schedulerState
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithHistory sets the poll history store. Without it, cycle results
// are not recorded durably.
func WithHistory(store driven.PollHistoryStore) Option {
	return func(s *Scheduler) { s.history = store }
}

// WithClock overrides the scheduler's clock. Test hook.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// NewScheduler creates an idle scheduler for the given sources.
func NewScheduler(
	repo driven.EventRepository,
	broker driven.EventBroker,
	ledger driven.DedupLedger,
	factory driven.ConnectorFactory,
	sources []domain.Source,
	opts ...Option,
) *Scheduler {
	s := &Scheduler{
		repo:    repo,
		broker:  broker,
		ledger:  ledger,
		factory: factory,
		sources: sources,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start spawns one polling loop per source. A second Start while
// polling is a no-op; Start after Stop fails: the scheduler is
// single-use.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case statePolling:
		return nil
	case stateStopped:
		return domain.ErrSchedulerStopped
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state = statePolling

	for _, source := range s.sources {
		if err := source.Validate(); err != nil {
			logger.Warn("scheduler: skipping source %s: %v", source.ID, err)
			continue
		}
		connector, err := s.factory.Create(source)
		if err != nil {
			logger.Warn("scheduler: skipping source %s: %v", source.ID, err)
			continue
		}

		s.wg.Add(1)
		go func(source domain.Source, connector driven.SourceConnector) {
			defer s.wg.Done()
			s.runSourceLoop(loopCtx, source, connector)
		}(source, connector)
	}

	logger.Info("scheduler: started %d source loops", len(s.sources))
	return nil
}

// Stop cancels every loop and waits for them to exit. Idempotent;
// terminal.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if s.state != statePolling {
		s.state = stateStopped
		s.mu.Unlock()
		return nil
	}
	s.state = stateStopped
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	logger.Info("scheduler: stopped")
	return nil
}

// Running reports whether the scheduler is in the polling state.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == statePolling
}

// runSourceLoop cycles one source until the context is cancelled. The
// first cycle runs immediately; subsequent cycles follow the source's
// configured interval.
func (s *Scheduler) runSourceLoop(ctx context.Context, source domain.Source, connector driven.SourceConnector) {
	for {
		result := s.ingestOnce(ctx, source, connector)
		if ctx.Err() != nil {
			return
		}
		s.recordCycle(ctx, source, result)

		select {
		case <-ctx.Done():
			return
		case <-time.After(source.Interval()):
		}
	}
}

// ingestOnce runs one full ingestion cycle for a source: fetch, join,
// dedup, normalise, save, publish. Connector failures have already
// degraded to empty slices, so a cycle never fails as a whole; at
// worst it produces nothing.
func (s *Scheduler) ingestOnce(ctx context.Context, source domain.Source, connector driven.SourceConnector) domain.PollResult {
	result := domain.PollResult{
		SourceID:  source.ID,
		StartedAt: s.now(),
	}

	catalog := connector.FetchCatalog(ctx)
	prices := connector.FetchPrices(ctx)
	reviews := connector.FetchReviews(ctx)

	if ctx.Err() != nil {
		// Stop requested: abandon the cycle without partial output.
		result.EndedAt = s.now()
		return result
	}

	if len(catalog) == 0 {
		heartbeat := domain.NewHeartbeatEvent(source.ID, s.now())
		if err := s.broker.Publish(heartbeat); err != nil {
			logger.Warn("scheduler: %s: publish heartbeat: %v", source.ID, err)
		}
		logger.Debug("scheduler: %s: heartbeat (empty catalog)", source.ID)
		result.Heartbeat = true
		result.Success = true
		result.EndedAt = s.now()
		return result
	}

	pricesByProduct := indexBySourceProductID(prices)
	reviewsByProduct := indexBySourceProductID(reviews)

	for _, rawProduct := range catalog {
		if ctx.Err() != nil {
			result.EndedAt = s.now()
			return result
		}

		sourceProductID, err := rawProduct.String("source_product_id")
		if err != nil {
			continue
		}
		rawPrice, havePrice := pricesByProduct[sourceProductID]
		rawReview, haveReview := reviewsByProduct[sourceProductID]
		if !havePrice || !haveReview {
			// An event is only built from the full raw triple.
			continue
		}

		productID := normalisers.ProductID(source.ID, sourceProductID)

		amount, err := rawPrice.Float("amount")
		if err != nil {
			result.ErrorCount++
			continue
		}
		observedAt, err := rawPrice.String("observed_at")
		if err != nil {
			result.ErrorCount++
			continue
		}

		signature := domain.Signature(source.ID, productID, amount, observedAt)
		if s.ledger.Seen(signature) {
			continue
		}

		product, err := normalisers.ProductFromRaw(source, rawProduct, rawPrice.Bool("in_stock", true))
		if err != nil {
			logger.Debug("scheduler: %s: %v", source.ID, err)
			result.ErrorCount++
			continue
		}
		price, err := normalisers.PriceFromRaw(source, productID, rawPrice)
		if err != nil {
			logger.Debug("scheduler: %s: %v", source.ID, err)
			result.ErrorCount++
			continue
		}
		review, err := normalisers.ReviewFromRaw(source, productID, rawReview)
		if err != nil {
			logger.Debug("scheduler: %s: %v", source.ID, err)
			result.ErrorCount++
			continue
		}

		event := domain.IngestionEvent{
			ID:      uuid.NewString(),
			Source:  source,
			Product: product,
			Price:   price,
			Review:  review,
			RawPayload: domain.RawPayload{
				Source:      source,
				RawProduct:  rawProduct,
				RawPrice:    rawPrice,
				RawReview:   rawReview,
				IngestedAt:  s.now(),
				ParseStatus: domain.ParseStatusOK,
			},
		}

		if err := s.repo.Save(event); err != nil {
			// The signature stays unmarked so the same observation is
			// retried next cycle.
			logger.Warn("scheduler: %s: %v", source.ID, err)
			result.ErrorCount++
			continue
		}
		s.ledger.Mark(signature)

		if err := s.broker.Publish(domain.NewPriceUpdateEvent(event)); err != nil {
			logger.Warn("scheduler: %s: publish: %v", source.ID, err)
		}
		result.EventsSaved++
	}

	logger.Debug("scheduler: %s: cycle saved %d events (%d errors)", source.ID, result.EventsSaved, result.ErrorCount)
	result.Success = true
	result.EndedAt = s.now()
	return result
}

// recordCycle writes the cycle outcome to the poll history store.
// Best-effort: a failing history store never blocks ingestion.
func (s *Scheduler) recordCycle(ctx context.Context, source domain.Source, result domain.PollResult) {
	if s.history == nil {
		return
	}

	task := &domain.PollTask{
		SourceID:        source.ID,
		SourceName:      source.Name,
		IntervalSeconds: source.CrawlIntervalSeconds,
		LastRun:         result.StartedAt,
		NextRun:         result.EndedAt.Add(source.Interval()),
	}
	if existing, err := s.history.GetTask(ctx, source.ID); err == nil && existing != nil {
		task.LastSuccess = existing.LastSuccess
		task.LastError = existing.LastError
	}
	if result.Success {
		task.LastSuccess = result.EndedAt
		task.LastError = ""
	} else if result.Error != "" {
		task.LastError = result.Error
	}

	if err := s.history.SaveTask(ctx, task); err != nil {
		logger.Warn("scheduler: %s: save task: %v", source.ID, err)
	}
	if err := s.history.RecordResult(ctx, &result); err != nil {
		logger.Warn("scheduler: %s: record result: %v", source.ID, err)
	}
	if err := s.history.PruneHistory(ctx, historyKeep); err != nil {
		logger.Warn("scheduler: prune history: %v", err)
	}
}

// indexBySourceProductID builds the per-cycle join lookup. Duplicate
// ids within one batch are last-wins; sources are expected to return
// each product at most once per call, so this is implementation-
// defined behaviour rather than a contract.
func indexBySourceProductID(records []domain.RawRecord) map[string]domain.RawRecord {
	index := make(map[string]domain.RawRecord, len(records))
	for _, record := range records {
		id, err := record.String("source_product_id")
		if err != nil {
			continue
		}
		index[id] = record
	}
	return index
}

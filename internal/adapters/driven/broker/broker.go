// Package broker provides the in-process publish/subscribe hub.
//
// The broker decouples event production from delivery: publishers
// never block on a subscriber. Each subscriber gets a bounded channel;
// a subscriber that lets its buffer fill is treated as dead or slow
// and evicted on the next publish, so backpressure is resolved by
// eviction rather than by stalling the pipeline.
package broker

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/leafstream/internal/core/ports/driven"
	"github.com/custodia-labs/leafstream/internal/logger"
)

// Ensure Broker implements the interface.
var _ driven.EventBroker = (*Broker)(nil)

// Broker is the in-memory fan-out hub. The zero value is not usable;
// construct with New.
type Broker struct {
	mu   sync.Mutex
	subs map[string]chan string
}

// New creates an empty broker.
func New() *Broker {
	return &Broker{
		subs: make(map[string]chan string),
	}
}

// Subscribe registers a new bounded subscriber channel and returns its
// handle. The subscriber receives events published from this moment
// onward only; there is no replay.
func (b *Broker) Subscribe() *driven.Subscription {
	ch := make(chan string, driven.SubscriberBufferSize)
	id := uuid.NewString()

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	logger.Debug("broker: subscriber %s registered", id)
	return &driven.Subscription{ID: id, C: ch}
}

// Unsubscribe deregisters and discards the subscription. Safe to call
// more than once and for already-evicted handles.
func (b *Broker) Unsubscribe(sub *driven.Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	ch, ok := b.subs[sub.ID]
	if ok {
		delete(b.subs, sub.ID)
		close(ch)
	}
	b.mu.Unlock()

	if ok {
		logger.Debug("broker: subscriber %s removed", sub.ID)
	}
}

// Publish serializes the event once and attempts a non-blocking send
// to every registered subscriber. Subscribers whose buffer is full are
// evicted immediately; their eviction never surfaces as an error to
// the publisher.
func (b *Broker) Publish(event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	message := string(payload)

	b.mu.Lock()
	var evicted []string
	for id, ch := range b.subs {
		select {
		case ch <- message:
		default:
			evicted = append(evicted, id)
		}
	}
	for _, id := range evicted {
		ch := b.subs[id]
		delete(b.subs, id)
		close(ch)
	}
	b.mu.Unlock()

	for _, id := range evicted {
		logger.Warn("broker: evicted slow subscriber %s", id)
	}
	return nil
}

// SubscriberCount returns the number of live subscriptions.
func (b *Broker) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

package driven

// SubscriberBufferSize is the fixed capacity of a subscriber's pending
// message channel. A subscriber whose buffer fills is evicted on the
// next publish rather than stalling the publisher.
const SubscriberBufferSize = 100

// Subscription is a live handle into the broker. Receive serialized
// events from C; release the handle with EventBroker.Unsubscribe. The
// subscriber does not own broker state, only this handle.
type Subscription struct {
	// ID uniquely identifies this subscription.
	ID string

	// C delivers events as UTF-8 JSON text, one message per event, in
	// publish order. Delivery may have gaps: messages are dropped when
	// the buffer is full and the subscription is then evicted.
	C <-chan string
}

// EventBroker is the in-process fan-out hub decoupling event
// production from delivery to zero or more live listeners.
type EventBroker interface {
	// Subscribe registers a new bounded subscriber channel and returns
	// its handle. A new subscriber receives events from subscription
	// time onward only; there is no replay.
	Subscribe() *Subscription

	// Unsubscribe deregisters and discards the subscription. Safe to
	// call for an already-evicted handle.
	Unsubscribe(sub *Subscription)

	// Publish serializes the event to JSON once and performs a
	// non-blocking send to every registered subscriber. Subscribers
	// with a full buffer are evicted immediately. The publisher never
	// blocks on a slow consumer.
	Publish(event any) error
}

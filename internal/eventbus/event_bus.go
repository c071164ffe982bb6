// Package eventbus routes user interactions to the handlers that act on them.
//
// Delivery is synchronous: Publish calls every subscriber of the topic in
// the caller's goroutine, in registration order, before it returns. Each
// handler runs isolated; a returned error or a panic is logged and the
// remaining handlers still run. Publish returns the joined failures.
package eventbus

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"clusterdash/pkg/logging"

	"github.com/google/uuid"
)

const subsystem = "EventBus"

// Topic names one kind of interaction.
type Topic string

const (
	// TopicExecuteOnNode asks to open the command dialog for a node. Payload: protocol.NodeRef.
	TopicExecuteOnNode Topic = "execute-on-node"
	// TopicSelectNode switches the active log tab. Payload: protocol.NodeAddress.
	TopicSelectNode Topic = "select-node"
	// TopicFilterChanged re-filters the active log buffer. Payload: string.
	TopicFilterChanged Topic = "filter-changed"
	// TopicResync re-issues the topology query on the primary channel. Payload: nil.
	TopicResync Topic = "resync"
)

// Interaction identifies the UI element that triggered an event.
type Interaction struct {
	// Target is the element acted on, e.g. the row's node address.
	Target string
	// CurrentTarget is the component that captured the interaction, e.g. "table".
	CurrentTarget string
	// Index is the element's position within CurrentTarget, or -1.
	Index int
}

// Event is one published interaction.
type Event struct {
	Topic       Topic
	Interaction Interaction
	Payload     any
	At          time.Time
}

// Handler processes an event.
type Handler func(Event) error

// Subscription is one registered handler.
type Subscription struct {
	ID      string
	Topic   Topic
	handler Handler
}

// Metrics counts bus activity.
type Metrics struct {
	Subscriptions int
	Published     int64
	Delivered     int64
	Failed        int64
	LastEventTime time.Time
}

// Bus is a synchronous topic-based publish/subscribe hub.
type Bus struct {
	mu      sync.RWMutex
	subs    map[Topic][]*Subscription
	metrics Metrics
	closed  bool
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[Topic][]*Subscription)}
}

// Subscribe registers handler for topic. Handlers of one topic run in the
// order they subscribed.
func (b *Bus) Subscribe(topic Topic, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	sub := &Subscription{ID: uuid.NewString(), Topic: topic, handler: handler}
	b.subs[topic] = append(b.subs[topic], sub)
	b.metrics.Subscriptions++
	return sub
}

// Unsubscribe removes sub; later publishes no longer reach it.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[sub.Topic]
	for i, s := range list {
		if s.ID == sub.ID {
			b.subs[sub.Topic] = append(list[:i:i], list[i+1:]...)
			b.metrics.Subscriptions--
			return
		}
	}
}

// Publish delivers an event to every subscriber of topic.
func (b *Bus) Publish(topic Topic, interaction Interaction, payload any) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return nil
	}
	// Copy so handlers may subscribe or unsubscribe without deadlocking.
	subs := append([]*Subscription(nil), b.subs[topic]...)
	b.mu.RUnlock()

	event := Event{Topic: topic, Interaction: interaction, Payload: payload, At: time.Now()}

	var errs []error
	for _, sub := range subs {
		if err := deliver(sub, event); err != nil {
			logging.Error(subsystem, err, "Handler %s for %s failed", sub.ID, topic)
			errs = append(errs, err)
		}
	}

	b.mu.Lock()
	b.metrics.Published++
	b.metrics.Delivered += int64(len(subs) - len(errs))
	b.metrics.Failed += int64(len(errs))
	b.metrics.LastEventTime = event.At
	b.mu.Unlock()

	return errors.Join(errs...)
}

func deliver(sub *Subscription, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked on %s: %v", event.Topic, r)
		}
	}()
	return sub.handler(event)
}

// Metrics returns a snapshot of the counters.
func (b *Bus) Metrics() Metrics {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.metrics
}

// Close drops every subscription; later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = make(map[Topic][]*Subscription)
	b.metrics.Subscriptions = 0
}

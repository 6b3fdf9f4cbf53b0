// Package eventbus is an in-process, topic-addressable publish/subscribe
// bus with at-most-once delivery. Each subscriber owns a bounded queue;
// when the queue is full the oldest pending event is dropped so
// publishers never block.
package eventbus

import (
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
)

// Event is one published message. Body is the JSON-encoded payload.
type Event struct {
	Topic string
	Body  json.RawMessage
}

// Handler processes delivered events. Handlers run on the subscription's
// own goroutine, in publication order for that subscriber.
type Handler func(Event)

// DefaultQueueSize bounds each subscriber's pending events.
const DefaultQueueSize = 64

// Bus routes events from publishers to topic subscribers.
type Bus struct {
	queueSize int

	mu     sync.RWMutex
	subs   map[string]map[uint64]*Subscription
	nextID uint64
	closed bool

	dropped atomic.Uint64
}

// Subscription is one cancellable topic subscription.
type Subscription struct {
	bus   *Bus
	topic string
	id    uint64

	queue chan Event
	once  sync.Once
	done  chan struct{}
}

// New creates a bus with the given per-subscriber queue size.
// Sizes ≤ 0 use DefaultQueueSize.
func New(queueSize int) *Bus {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Bus{
		queueSize: queueSize,
		subs:      make(map[string]map[uint64]*Subscription),
	}
}

// Subscribe registers handler for topic and starts its delivery
// goroutine. The returned subscription is cancelled with Cancel.
func (b *Bus) Subscribe(topic string, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		bus:   b,
		topic: topic,
		id:    b.nextID,
		queue: make(chan Event, b.queueSize),
		done:  make(chan struct{}),
	}

	if b.subs[topic] == nil {
		b.subs[topic] = make(map[uint64]*Subscription)
	}
	b.subs[topic][sub.id] = sub

	go sub.deliver(handler)
	return sub
}

// Publish enqueues the event to every current subscriber of the topic.
// Delivery is asynchronous; a full subscriber queue drops that
// subscriber's oldest pending event. Publish never blocks.
func (b *Bus) Publish(topic string, body json.RawMessage) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	subs := make([]*Subscription, 0, len(b.subs[topic]))
	for _, sub := range b.subs[topic] {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	ev := Event{Topic: topic, Body: body}
	for _, sub := range subs {
		sub.enqueue(ev, b)
	}
}

// Dropped returns the number of events discarded because a subscriber
// queue overflowed.
func (b *Bus) Dropped() uint64 { return b.dropped.Load() }

// Close cancels every subscription.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	var all []*Subscription
	for _, topicSubs := range b.subs {
		for _, sub := range topicSubs {
			all = append(all, sub)
		}
	}
	b.subs = make(map[string]map[uint64]*Subscription)
	b.mu.Unlock()

	for _, sub := range all {
		sub.stop()
	}
}

// Cancel removes the subscription and stops its delivery goroutine.
// Pending events are discarded.
func (s *Subscription) Cancel() {
	s.bus.mu.Lock()
	if topicSubs := s.bus.subs[s.topic]; topicSubs != nil {
		delete(topicSubs, s.id)
		if len(topicSubs) == 0 {
			delete(s.bus.subs, s.topic)
		}
	}
	s.bus.mu.Unlock()

	s.stop()
}

func (s *Subscription) stop() {
	s.once.Do(func() { close(s.done) })
}

// enqueue adds ev to the queue, dropping the oldest pending event when
// full. Single-publisher-at-a-time is not assumed; the retry loop
// handles races between concurrent publishers.
func (s *Subscription) enqueue(ev Event, b *Bus) {
	for {
		select {
		case s.queue <- ev:
			return
		default:
		}
		select {
		case <-s.queue:
			b.dropped.Add(1)
			log.Printf("[eventbus] subscriber queue full on %q, dropped oldest event", s.topic)
		default:
		}
	}
}

func (s *Subscription) deliver(handler Handler) {
	for {
		select {
		case <-s.done:
			return
		case ev := <-s.queue:
			handler(ev)
		}
	}
}

package events

import (
	"sync"
	"time"
)

// EventType identifies the kind of Store event being published.
type EventType string

const (
	// EventCreate fires on a successful create; Event.Model names which
	// collection.
	EventCreate EventType = "create"
	// EventCreateRevision fires on a successful createRevision; Event.Model
	// names which collection.
	EventCreateRevision EventType = "createRevision"
	// EventLockAcquired fires when AcquireWhenFree's poll loop succeeds.
	EventLockAcquired EventType = "clientFile:lockAcquired"
)

// Event is a single Store notification.
type Event struct {
	Type      EventType
	Model     string
	Timestamp time.Time
	ObjectID  string
	Metadata  map[string]string
}

// Subscriber is a channel that receives events.
type Subscriber chan *Event

// Broker distributes events to subscribers over buffered channels. A Broker
// belongs to exactly one Session; it is never a process-global singleton,
// so that multiple sessions in one process (or test binary) don't cross
// each other's notifications.
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	eventCh     chan *Event
	stopCh      chan struct{}
}

// NewBroker creates a new, unstarted event broker.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *Event, 100),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's event distribution loop.
func (b *Broker) Start() {
	go b.run()
}

// Stop stops the broker. Safe to call once per broker.
func (b *Broker) Stop() {
	close(b.stopCh)
}

// Subscribe creates a new subscription and returns its channel.
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 50)
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers, sub)
	close(sub)
}

// Publish publishes an event to all subscribers. Non-blocking: a full
// subscriber buffer drops the event for that subscriber rather than
// stalling the publisher.
func (b *Broker) Publish(event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- event:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

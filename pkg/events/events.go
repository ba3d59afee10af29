package events

import (
	"sync"
	"time"

	"github.com/cuemby/dops/pkg/types"
	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventPhaseChanged       EventType = "phase.changed"
	EventProgressUpdated    EventType = "progress.updated"
	EventRecoveryStarted    EventType = "recovery.started"
	EventSessionReady       EventType = "session.ready"
	EventSessionFailed      EventType = "session.failed"
	EventLocationsLoaded    EventType = "locations.loaded"
	EventPredictionComplete EventType = "prediction.completed"
	EventPredictionFailed   EventType = "prediction.failed"
)

// Event represents a session event
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	Message   string

	// State is the warm-up state right after the change
	State    types.WarmupState
	Metadata map[string]string
}

// Subscriber is a channel that receives events
type Subscriber chan *Event

// filter is the set of event types a subscriber wants; nil means all
type filter map[EventType]struct{}

func (f filter) accepts(t EventType) bool {
	if f == nil {
		return true
	}
	_, ok := f[t]
	return ok
}

// Broker fans session events out to subscribers without ever blocking the
// session loop on a slow reader
type Broker struct {
	subscribers map[Subscriber]filter
	mu          sync.RWMutex
	eventCh     chan *Event
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// NewBroker creates a new event broker
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]filter),
		eventCh:     make(chan *Event, 256), // progress ticks arrive every few ms during fast-forward
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's event distribution loop
func (b *Broker) Start() {
	go b.run()
}

// Stop ends distribution and closes every subscriber channel, so readers
// ranging over a subscription return. Events still queued are dropped.
func (b *Broker) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopCh)

		b.mu.Lock()
		defer b.mu.Unlock()
		for sub := range b.subscribers {
			close(sub)
		}
		clear(b.subscribers)
	})
}

// Subscribe creates a subscription that receives every event
func (b *Broker) Subscribe() Subscriber {
	return b.SubscribeTypes()
}

// SubscribeTypes creates a subscription limited to the given event types.
// With no types it behaves like Subscribe.
func (b *Broker) SubscribeTypes(types ...EventType) Subscriber {
	var f filter
	if len(types) > 0 {
		f = make(filter, len(types))
		for _, t := range types {
			f[t] = struct{}{}
		}
	}

	sub := make(Subscriber, 64)

	b.mu.Lock()
	defer b.mu.Unlock()
	select {
	case <-b.stopCh:
		// a stopped broker hands out closed subscriptions
		close(sub)
	default:
		b.subscribers[sub] = f
	}
	return sub
}

// Unsubscribe removes a subscription
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[sub]; !ok {
		return
	}
	delete(b.subscribers, sub)
	close(sub)
}

// Publish publishes an event to all subscribers
func (b *Broker) Publish(event *Event) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
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

	for sub, f := range b.subscribers {
		if !f.accepts(event.Type) {
			continue
		}
		select {
		case sub <- event:
		default:
			// full; the next progress tick carries the newer state anyway
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

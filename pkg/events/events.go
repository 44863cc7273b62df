package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kgaudium/tentaclepreview/pkg/metrics"
)

// EventType identifies the kind of event broadcast on the bus. These are
// the three event types the dashboard's websocket surface understands.
type EventType string

const (
	// EventStatusUpdate carries a per-tentacle build/start status change.
	EventStatusUpdate EventType = "status_update"
	// EventLogsUpdate carries a full or streaming log fragment for one tentacle.
	EventLogsUpdate EventType = "logs_update"
	// EventSystemLogsUpdate carries a new fleet-wide system log entry.
	EventSystemLogsUpdate EventType = "system_logs_update"
)

// Event is one message broadcast to every connected dashboard client.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Branch    string    `json:"branch,omitempty"`
	// Level is only meaningful on EventSystemLogsUpdate; it mirrors the
	// level embedded in Payload so the broker can apply the system-log
	// level filter without knowing Payload's concrete type.
	Level   string      `json:"level,omitempty"`
	Payload interface{} `json:"payload"`
}

// Subscriber is a channel that receives events
type Subscriber chan *Event

// Broker is an in-memory, non-blocking pub/sub event bus. Publish never
// blocks the caller: a full event queue or a full subscriber buffer drops
// the event rather than applying back-pressure, matching the
// broadcast-is-best-effort requirement for status/log events.
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	eventCh     chan *Event
	stopCh      chan struct{}
	stopOnce    sync.Once

	levelMu sync.RWMutex
	// levelFilter nil means "all".
	levelFilter map[string]bool
}

// NewBroker creates a new event broker. Call Start before the first Publish.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *Event, 100), // Buffer up to 100 events
		stopCh:      make(chan struct{}),
	}
}

// SetLevelFilter restricts which levels of EventSystemLogsUpdate get
// broadcast; levels == nil allows every level through, matching
// enabled_log_levels: all. Other event types are never filtered.
func (b *Broker) SetLevelFilter(levels []string) {
	b.levelMu.Lock()
	defer b.levelMu.Unlock()

	if levels == nil {
		b.levelFilter = nil
		return
	}
	set := make(map[string]bool, len(levels))
	for _, l := range levels {
		set[l] = true
	}
	b.levelFilter = set
}

func (b *Broker) levelAllowed(event *Event) bool {
	if event.Type != EventSystemLogsUpdate {
		return true
	}

	b.levelMu.RLock()
	defer b.levelMu.RUnlock()
	return b.levelFilter == nil || b.levelFilter[event.Level]
}

// Start begins the broker's event distribution loop
func (b *Broker) Start() {
	go b.run()
}

// Stop stops the broker. Safe to call more than once.
func (b *Broker) Stop() {
	b.stopOnce.Do(func() { close(b.stopCh) })
}

// Subscribe creates a new subscription and returns a channel
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 50) // Buffer per subscriber
	b.subscribers[sub] = true
	metrics.EventBusSubscribersTotal.Set(float64(len(b.subscribers)))
	return sub
}

// Unsubscribe removes a subscription
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers, sub)
	close(sub)
	metrics.EventBusSubscribersTotal.Set(float64(len(b.subscribers)))
}

// Publish publishes an event to all subscribers. A system-log event
// whose level isn't in the configured enabled_log_levels set is
// dropped before it ever reaches the queue.
func (b *Broker) Publish(event *Event) {
	if !b.levelAllowed(event) {
		return
	}

	// Set timestamp if not set
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	select {
	case b.eventCh <- event:
		metrics.EventBusPublishedTotal.WithLabelValues(string(event.Type)).Inc()
	case <-b.stopCh:
	default:
		// queue full; drop rather than block the publisher
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
			// Subscriber buffer full, skip
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

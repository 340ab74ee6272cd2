package agent

import (
	"sync"
	"time"
)

// EventType represents the type of agent event.
type EventType string

const (
	EventTurnStart         EventType = "turn_start"
	EventAnalysisComplete  EventType = "analysis_complete"
	EventMemoryStored      EventType = "memory_stored"
	EventMemorySkipped     EventType = "memory_skipped"
	EventMemoriesRetrieved EventType = "memories_retrieved"
	EventReply             EventType = "reply"
	EventTurnError         EventType = "turn_error"
)

// Event represents an agent event with associated data.
type Event struct {
	Type      EventType
	Timestamp time.Time
	TurnID    string
	Data      map[string]interface{}
}

// EventHandler is a function that handles events.
type EventHandler func(Event)

// EventBus manages event publication and subscription.
// Handlers run synchronously on the publishing goroutine.
type EventBus struct {
	mu          sync.RWMutex
	handlers    map[EventType][]EventHandler
	allHandlers []EventHandler
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[EventType][]EventHandler),
	}
}

// Subscribe registers a handler for a specific event type.
func (eb *EventBus) Subscribe(eventType EventType, handler EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
}

// SubscribeAll registers a handler for all event types.
func (eb *EventBus) SubscribeAll(handler EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.allHandlers = append(eb.allHandlers, handler)
}

// Publish sends an event to all registered handlers.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	for _, handler := range eb.handlers[event.Type] {
		handler(event)
	}
	for _, handler := range eb.allHandlers {
		handler(event)
	}
}

// PublishSimple is a convenience method for publishing events without additional data.
func (eb *EventBus) PublishSimple(eventType EventType, turnID string) {
	eb.Publish(Event{
		Type:   eventType,
		TurnID: turnID,
	})
}

// PublishWithData publishes an event with associated data.
func (eb *EventBus) PublishWithData(eventType EventType, turnID string, data map[string]interface{}) {
	eb.Publish(Event{
		Type:   eventType,
		TurnID: turnID,
		Data:   data,
	})
}

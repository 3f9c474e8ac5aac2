package bus

import "time"

// EventBus defines a thread-safe, in-process pub/sub event bus.
//
// Handlers subscribe by Event.Type(). Publish delivers synchronously in the
// caller goroutine and joins handler errors; handlers running on the
// simulation thread must therefore be quick.
type EventBus interface {
	// Publish delivers the event to all active subscribers of event.Type().
	Publish(event Event) error
	// PublishAsync publishes in a separate goroutine; the returned channel
	// receives the joined handler error (or nil) and is then closed.
	PublishAsync(event Event) <-chan error
	// Subscribe registers a handler for an event type.
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
	// Unsubscribe cancels the given Subscription. It is safe to call with nil.
	Unsubscribe(Subscription) error
	// Metrics returns a snapshot of delivery counters.
	Metrics() Metrics
}

// Event is an immutable message transported by the EventBus.
type Event interface {
	Type() string
	Source() string
	Timestamp() time.Time
	Data() any
}

type (
	// EventHandler is a callback invoked per delivered event.
	EventHandler func(event Event) error
)

// Subscription represents a registered handler bound to an event type.
type Subscription interface {
	ID() string
	EventType() string
	IsActive() bool
	// Cancel de-registers the handler from the bus. Multiple calls are safe.
	Cancel() error
}

// Metrics counts bus activity.
type Metrics struct {
	Published         uint64
	DeliveredHandlers uint64
	Errors            uint64
	SubscribersActive uint64
}

// Event types published by the simulation.
const (
	TypeIndexRebuilt     = "spatial.rebuilt"
	TypeSelectionChanged = "selection.changed"
	TypeMoveOrdered      = "move.ordered"
)

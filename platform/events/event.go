// Package events is the in-process publish/subscribe layer that decouples
// mailbox ingress from the workflow stages. It carries no domain types.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is anything published on a Bus. EventName is the subscription key.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent is embedded by concrete events.
type BaseEvent struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// NewBaseEvent stamps a fresh id and the current UTC time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{ID: uuid.New(), Timestamp: time.Now().UTC()}
}

// Handler consumes one event.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error { return f(ctx, event) }

// Bus fans events out to subscribers.
type Bus interface {
	// Publish delivers asynchronously, detached from ctx cancellation.
	Publish(ctx context.Context, event Event)
	// PublishSync delivers in registration order and joins handler errors.
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
}

// On subscribes fn to every event of type E. The zero value of E supplies
// the event name.
func On[E Event](bus Bus, fn func(ctx context.Context, event E) error) {
	var zero E
	bus.Subscribe(zero.EventName(), HandlerFunc(func(ctx context.Context, e Event) error {
		typed, ok := e.(E)
		if !ok {
			return fmt.Errorf("events: %s delivered as %T", zero.EventName(), e)
		}
		return fn(ctx, typed)
	}))
}

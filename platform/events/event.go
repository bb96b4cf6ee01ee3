// Package events is the in-process publish/subscribe used between bounded contexts.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is a fact published by one module for others to react to.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent carries the identity and time shared by all events.
type BaseEvent struct {
	EventID   uuid.UUID `json:"eventId"`
	Timestamp time.Time `json:"timestamp"`
}

// OccurredAt implements Event.
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// NewBaseEvent stamps a fresh id and the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{EventID: uuid.New(), Timestamp: time.Now().UTC()}
}

// Handler reacts to one event.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, event Event) error { return f(ctx, event) }

// On subscribes fn to events of type T. Events of other types under the same
// name are ignored.
func On[T Event](s Subscriber, fn func(context.Context, T) error) {
	var zero T
	s.Subscribe(zero.EventName(), HandlerFunc(func(ctx context.Context, e Event) error {
		typed, ok := e.(T)
		if !ok {
			return nil
		}
		return fn(ctx, typed)
	}))
}

// Publisher is the side pipelines and services depend on.
type Publisher interface {
	// Publish runs handlers asynchronously; failures are only logged.
	Publish(ctx context.Context, event Event)
	// PublishSync runs handlers in order and returns their joined errors.
	PublishSync(ctx context.Context, event Event) error
}

// Subscriber registers handlers by event name.
type Subscriber interface {
	Subscribe(eventName string, handler Handler)
}

// Bus publishes and subscribes.
type Bus interface {
	Publisher
	Subscriber
}

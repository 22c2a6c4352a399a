// Package eventbus publishes and dispatches document events.
package eventbus

import (
	"context"

	"github.com/dukex/blockflow/pkg/events"
)

// Event is a document notification. Implementations live in package events.
type Event interface {
	GetType() events.EventType
}

// EventPublisher publishes events keyed by document id so that one document's events stay ordered.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler receives a pointer to the decoded event, e.g. *events.DocumentUpdated.
type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}

// DocumentEvents lists every event type the editor publishes.
var DocumentEvents = []events.EventType{
	events.DocumentCreatedEvent,
	events.DocumentUpdatedEvent,
	events.DocumentSavedEvent,
	events.DocumentDeletedEvent,
}

// HandleAll registers handler for each of DocumentEvents.
func HandleAll(sub EventSubscriber, handler EventHandler) error {
	for _, eventType := range DocumentEvents {
		if err := sub.Handle(eventType, handler); err != nil {
			return err
		}
	}

	return nil
}

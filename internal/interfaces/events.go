package interfaces

import (
	"context"

	"github.com/ternarybob/genero/internal/models"
)

// EventHandler processes one published event
type EventHandler func(ctx context.Context, event models.Event) error

// EventService is the typed subscription surface for cross-cutting observers.
// Publish is fire-and-forget from the caller's perspective; handler errors
// are logged, never propagated back to the publisher.
type EventService interface {
	Publish(ctx context.Context, event models.Event)
	Subscribe(eventType models.EventType, handler EventHandler)
	SubscribeAll(handler EventHandler)
}

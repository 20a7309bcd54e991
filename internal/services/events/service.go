package events

import (
	"context"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/genero/internal/interfaces"
	"github.com/ternarybob/genero/internal/models"
)

// Service is an in-process typed event dispatcher. Handlers run
// synchronously in registration order; a failing handler is logged and
// never blocks the publisher or other handlers.
type Service struct {
	mu       sync.RWMutex
	handlers map[models.EventType][]interfaces.EventHandler
	all      []interfaces.EventHandler
	logger   arbor.ILogger
}

// NewService creates a new event service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		handlers: make(map[models.EventType][]interfaces.EventHandler),
		logger:   logger,
	}
}

// Subscribe registers a handler for one event type
func (s *Service) Subscribe(eventType models.EventType, handler interfaces.EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[eventType] = append(s.handlers[eventType], handler)
}

// SubscribeAll registers a handler for every event type
func (s *Service) SubscribeAll(handler interfaces.EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.all = append(s.all, handler)
}

// Publish dispatches an event to all matching handlers
func (s *Service) Publish(ctx context.Context, event models.Event) {
	s.mu.RLock()
	typed := make([]interfaces.EventHandler, len(s.handlers[event.Type]))
	copy(typed, s.handlers[event.Type])
	all := make([]interfaces.EventHandler, len(s.all))
	copy(all, s.all)
	s.mu.RUnlock()

	for _, handler := range typed {
		if err := handler(ctx, event); err != nil {
			s.logger.Warn().
				Err(err).
				Str("event_type", string(event.Type)).
				Msg("Event handler failed")
		}
	}
	for _, handler := range all {
		if err := handler(ctx, event); err != nil {
			s.logger.Warn().
				Err(err).
				Str("event_type", string(event.Type)).
				Msg("Event handler failed")
		}
	}
}

var _ interfaces.EventService = (*Service)(nil)

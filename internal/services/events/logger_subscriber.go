package events

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/genero/internal/interfaces"
	"github.com/ternarybob/genero/internal/models"
)

// NewLoggerSubscriber creates an event handler that logs all events
func NewLoggerSubscriber(logger arbor.ILogger) interfaces.EventHandler {
	return func(ctx context.Context, event models.Event) error {
		logEvent := logger.Debug().
			Str("event_type", string(event.Type))

		if event.JobID != "" {
			logEvent = logEvent.Str("job_id", event.JobID)
		}
		if event.Queue != "" {
			logEvent = logEvent.Str("queue", event.Queue)
		}
		if status, ok := event.Payload["status"].(string); ok {
			logEvent = logEvent.Str("status", status)
		}

		logEvent.Msg("Event published")

		return nil
	}
}

package models

import "time"

// EventType identifies a lifecycle event published on the event service
type EventType string

const (
	EventJobCreated     EventType = "job.created"
	EventJobStarted     EventType = "job.started"
	EventJobProgress    EventType = "job.progress"
	EventJobRetried     EventType = "job.retried"
	EventJobCompleted   EventType = "job.completed"
	EventJobFailed      EventType = "job.failed"
	EventJobCancelled   EventType = "job.cancelled"
	EventProviderHealth EventType = "provider.health"
)

// Event is a typed notification for cross-cutting observers (logging,
// metrics, websocket stream). Payload keys are event-specific.
type Event struct {
	Type      EventType              `json:"type"`
	JobID     string                 `json:"job_id,omitempty"`
	Queue     string                 `json:"queue,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewEvent creates an event stamped with the current time
func NewEvent(eventType EventType, jobID, queue string, payload map[string]interface{}) Event {
	return Event{
		Type:      eventType,
		JobID:     jobID,
		Queue:     queue,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

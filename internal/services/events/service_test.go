package events

import (
	"context"
	"errors"
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/genero/internal/models"
)

func TestService_Subscribe(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	var received []models.Event
	svc.Subscribe(models.EventJobCompleted, func(ctx context.Context, event models.Event) error {
		received = append(received, event)
		return nil
	})

	svc.Publish(context.Background(), models.NewEvent(models.EventJobCompleted, "job-1", "publish", nil))
	svc.Publish(context.Background(), models.NewEvent(models.EventJobFailed, "job-2", "publish", nil))

	if len(received) != 1 {
		t.Fatalf("expected 1 event, got %d", len(received))
	}
	if received[0].JobID != "job-1" {
		t.Errorf("wrong event delivered: %s", received[0].JobID)
	}
}

func TestService_SubscribeAll(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	count := 0
	svc.SubscribeAll(func(ctx context.Context, event models.Event) error {
		count++
		return nil
	})

	svc.Publish(context.Background(), models.NewEvent(models.EventJobCreated, "a", "q", nil))
	svc.Publish(context.Background(), models.NewEvent(models.EventJobStarted, "a", "q", nil))
	svc.Publish(context.Background(), models.NewEvent(models.EventProviderHealth, "", "", nil))

	if count != 3 {
		t.Fatalf("expected 3 events, got %d", count)
	}
}

func TestService_HandlerErrorDoesNotBlockOthers(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	secondCalled := false
	svc.Subscribe(models.EventJobCreated, func(ctx context.Context, event models.Event) error {
		return errors.New("handler exploded")
	})
	svc.Subscribe(models.EventJobCreated, func(ctx context.Context, event models.Event) error {
		secondCalled = true
		return nil
	})

	svc.Publish(context.Background(), models.NewEvent(models.EventJobCreated, "a", "q", nil))

	if !secondCalled {
		t.Fatal("second handler not invoked after first handler failed")
	}
}

func TestService_PublishWithoutSubscribers(t *testing.T) {
	svc := NewService(arbor.NewLogger())
	// Must not panic
	svc.Publish(context.Background(), models.NewEvent(models.EventJobProgress, "a", "q", map[string]interface{}{"progress": 40}))
}

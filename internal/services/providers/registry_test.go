package providers

import (
	"context"
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/genero/internal/models"
)

// stubProvider is a minimal Provider for registry tests
type stubProvider struct {
	name string
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Generate(ctx context.Context, req *models.GenerationRequest) ([]models.GeneratedAsset, string, error) {
	return nil, "", nil
}

func (p *stubProvider) Probe(ctx context.Context) error { return nil }

func register(t *testing.T, r *Registry, name string, capType models.CapabilityType, priority int) {
	t.Helper()
	desc := &models.ProviderDescriptor{
		Name:     name,
		Driver:   "relay",
		Type:     capType,
		Priority: priority,
	}
	if err := r.Register(desc, &stubProvider{name: name}); err != nil {
		t.Fatalf("failed to register %s: %v", name, err)
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry(arbor.NewLogger())
	register(t, r, "alpha", models.CapabilityText, 1)

	entry, ok := r.Get("alpha")
	if !ok {
		t.Fatal("registered provider not found")
	}
	if !entry.Descriptor.Available {
		t.Error("provider should start available")
	}

	// Duplicate name rejected
	if err := r.Register(entry.Descriptor, &stubProvider{name: "alpha"}); err == nil {
		t.Error("duplicate registration should fail")
	}

	// Empty name rejected
	if err := r.Register(&models.ProviderDescriptor{}, &stubProvider{}); err == nil {
		t.Error("registration without a name should fail")
	}
}

func TestRegistry_ListPriorityOrder(t *testing.T) {
	r := NewRegistry(arbor.NewLogger())
	register(t, r, "cheap", models.CapabilityText, 3)
	register(t, r, "primary", models.CapabilityText, 1)
	register(t, r, "backup", models.CapabilityText, 2)

	entries := r.List()
	want := []string{"primary", "backup", "cheap"}
	for i, name := range want {
		if entries[i].Descriptor.Name != name {
			t.Errorf("position %d: got %s, want %s", i, entries[i].Descriptor.Name, name)
		}
	}
}

func TestRegistry_Candidates(t *testing.T) {
	r := NewRegistry(arbor.NewLogger())
	register(t, r, "text-only", models.CapabilityText, 1)
	register(t, r, "image-only", models.CapabilityImage, 2)
	register(t, r, "multi", models.CapabilityBoth, 3)
	register(t, r, "down", models.CapabilityText, 4)

	if _, err := r.SetAvailable("down", false); err != nil {
		t.Fatalf("SetAvailable failed: %v", err)
	}

	text := r.Candidates(models.CapabilityText)
	if len(text) != 2 {
		t.Fatalf("expected 2 text candidates, got %d", len(text))
	}
	if text[0].Descriptor.Name != "text-only" || text[1].Descriptor.Name != "multi" {
		t.Errorf("unexpected text candidates: %s, %s", text[0].Descriptor.Name, text[1].Descriptor.Name)
	}

	image := r.Candidates(models.CapabilityImage)
	if len(image) != 2 {
		t.Fatalf("expected 2 image candidates, got %d", len(image))
	}
}

func TestRegistry_SetAvailable(t *testing.T) {
	r := NewRegistry(arbor.NewLogger())
	register(t, r, "alpha", models.CapabilityText, 1)

	previous, err := r.SetAvailable("alpha", false)
	if err != nil {
		t.Fatalf("SetAvailable failed: %v", err)
	}
	if !previous {
		t.Error("expected previous availability to be true")
	}

	previous, _ = r.SetAvailable("alpha", false)
	if previous {
		t.Error("expected previous availability to be false on second call")
	}

	if _, err := r.SetAvailable("ghost", true); err == nil {
		t.Error("SetAvailable on unknown provider should fail")
	}
}

package resume

import (
	"context"
	"errors"
	"testing"

	"payment-reconciler/internal/models"
)

func TestTieredReadsFallBackToArchive(t *testing.T) {
	ctx := context.Background()
	primary := NewMemoryStore()
	archive := NewMemoryStore()

	archived := &models.ResumeRecord{ProviderCollectID: "collect-old", Amount: 300}
	if err := archive.Save(ctx, archived); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	tiered := NewTiered(primary, archive)

	got, err := tiered.Get(ctx, "collect-old")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Amount != 300 {
		t.Errorf("amount = %v, want 300", got.Amount)
	}

	latest, err := tiered.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if latest.ProviderCollectID != "collect-old" {
		t.Errorf("latest = %q", latest.ProviderCollectID)
	}
}

func TestTieredWritesBothLayers(t *testing.T) {
	ctx := context.Background()
	primary := NewMemoryStore()
	archive := NewMemoryStore()
	tiered := NewTiered(primary, archive)

	record := &models.ResumeRecord{ProviderCollectID: "collect-9", Amount: 50}
	if err := tiered.Save(ctx, record); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := primary.Get(ctx, "collect-9"); err != nil {
		t.Errorf("primary missing record: %v", err)
	}
	if _, err := archive.Get(ctx, "collect-9"); err != nil {
		t.Errorf("archive missing record: %v", err)
	}
}

func TestTieredWithoutArchive(t *testing.T) {
	ctx := context.Background()
	tiered := NewTiered(NewMemoryStore(), nil)

	if _, err := tiered.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

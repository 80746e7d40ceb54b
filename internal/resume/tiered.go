package resume

import (
	"context"
	"errors"
	"log"

	"payment-reconciler/internal/models"
)

// Tiered layers a fast primary store (Redis) over a durable archive
// (Postgres). Writes go to both; reads fall back to the archive when
// the primary misses, so a resume record survives cache eviction.
type Tiered struct {
	primary   Store
	secondary Store
}

// NewTiered creates a tiered store. secondary may be nil, in which case
// the primary is used alone.
func NewTiered(primary, secondary Store) *Tiered {
	return &Tiered{primary: primary, secondary: secondary}
}

func (t *Tiered) Save(ctx context.Context, record *models.ResumeRecord) error {
	if err := t.primary.Save(ctx, record); err != nil {
		return err
	}
	if t.secondary != nil {
		if err := t.secondary.Save(ctx, record); err != nil {
			log.Printf("Failed to archive resume record %s: %v", record.ProviderCollectID, err)
		}
	}
	return nil
}

func (t *Tiered) Get(ctx context.Context, providerCollectID string) (*models.ResumeRecord, error) {
	record, err := t.primary.Get(ctx, providerCollectID)
	if err == nil {
		return record, nil
	}
	if t.secondary == nil {
		return nil, err
	}
	if !errors.Is(err, ErrNotFound) {
		log.Printf("Resume store read failed for %s, trying archive: %v", providerCollectID, err)
	}
	return t.secondary.Get(ctx, providerCollectID)
}

func (t *Tiered) Latest(ctx context.Context) (*models.ResumeRecord, error) {
	record, err := t.primary.Latest(ctx)
	if err == nil {
		return record, nil
	}
	if t.secondary == nil {
		return nil, err
	}
	return t.secondary.Latest(ctx)
}

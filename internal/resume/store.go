package resume

import (
	"context"
	"errors"

	"payment-reconciler/internal/models"
)

// ErrNotFound is returned when no resume record exists for an order.
var ErrNotFound = errors.New("resume: record not found")

// Store persists resume records across the redirect to the external
// gateway and back. The payment-creation flow writes a record once; the
// reconciler only reads.
type Store interface {
	// Save writes the record keyed by its provider collect id and
	// updates the latest-record pointer.
	Save(ctx context.Context, record *models.ResumeRecord) error

	// Get returns the record for a provider collect id, or ErrNotFound.
	Get(ctx context.Context, providerCollectID string) (*models.ResumeRecord, error)

	// Latest returns the most recently saved record, or ErrNotFound.
	// Used when a gateway redirect comes back without any identifier.
	Latest(ctx context.Context) (*models.ResumeRecord, error)
}

package status

import (
	"strings"

	"payment-reconciler/internal/models"
)

// Normalize maps a gateway's raw status vocabulary onto the canonical
// lattice. Unknown or empty input degrades to Pending; it never errors.
//
// The one cross-field rule: a primary SUCCESS with a present capture
// status that itself normalizes to Pending is downgraded to Pending.
// Some gateways report outer success while the inner capture is still
// settling.
func Normalize(primary, capture string) models.CanonicalStatus {
	s := normalizeOne(primary)
	if s == models.StatusSuccess && capture != "" && normalizeOne(capture) == models.StatusPending {
		return models.StatusPending
	}
	return s
}

func normalizeOne(raw string) models.CanonicalStatus {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "SUCCESS", "COMPLETED", "PAID":
		return models.StatusSuccess
	case "FAILED", "DECLINED", "ERROR":
		return models.StatusFailed
	case "CANCELLED", "CANCELED", "USER_DROPPED":
		return models.StatusCancelled
	default:
		return models.StatusPending
	}
}

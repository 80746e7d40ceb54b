package models

// CanonicalStatus is the reconciled payment status shown to staff.
// Gateways report a much wider vocabulary; everything collapses onto
// these four states.
type CanonicalStatus string

const (
	StatusPending   CanonicalStatus = "pending"
	StatusSuccess   CanonicalStatus = "success"
	StatusFailed    CanonicalStatus = "failed"
	StatusCancelled CanonicalStatus = "cancelled"
)

// IsTerminal reports whether the status is final. A terminal status is
// never downgraded once observed from an authoritative source.
func (s CanonicalStatus) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

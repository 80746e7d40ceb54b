package models

import "time"

// IdentifierPriority ranks the sources an order identifier can come
// from. A snapshot's identifier is only ever upgraded to a
// higher-priority source, never overwritten by a lower one.
type IdentifierPriority int

const (
	IdentifierCached   IdentifierPriority = iota // resume record
	IdentifierProvider                           // redirect collect id
	IdentifierCustom                             // server-confirmed custom order id
)

// StatusSnapshot is the reconciled view of one in-flight payment.
type StatusSnapshot struct {
	OrderIdentifier string          `json:"orderIdentifier"`
	Status          CanonicalStatus `json:"status"`
	Amount          float64         `json:"amount"` // 0 means unresolved, not free
	PaymentMode     string          `json:"paymentMode,omitempty"`
	LastUpdatedAt   time.Time       `json:"lastUpdatedAt"`
	TerminalSince   *time.Time      `json:"terminalSince,omitempty"`
}

// TerminalLocked reports whether the snapshot has reached a final
// status. Once locked, status and TerminalSince never change again.
func (s StatusSnapshot) TerminalLocked() bool {
	return s.TerminalSince != nil
}

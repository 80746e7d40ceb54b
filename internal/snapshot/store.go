package snapshot

import (
	"sync"
	"time"

	"payment-reconciler/internal/models"
)

// Incoming is one reconciled observation about an order, produced by
// running a raw source through the normalizer and amount resolver.
type Incoming struct {
	Status             models.CanonicalStatus
	Amount             float64
	PaymentMode        string
	OrderIdentifier    string
	IdentifierPriority models.IdentifierPriority
}

// Store owns the single mutable StatusSnapshot for one order. All
// writes go through Seed or Apply; the terminal lock lives here and
// nowhere else, which is what protects the snapshot against stale or
// out-of-order poll responses.
type Store struct {
	mu         sync.Mutex
	snap       models.StatusSnapshot
	idPriority models.IdentifierPriority
	now        func() time.Time
}

// New creates an empty store for an order.
func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock creates a store with an injectable clock.
func NewWithClock(now func() time.Time) *Store {
	return &Store{
		snap: models.StatusSnapshot{Status: models.StatusPending},
		now:  now,
	}
}

// Seed applies an initial observation from the redirect or the cached
// resume record. Seeding never sets the terminal lock: a terminal status
// carried by a redirect still needs a confirming live fetch before it
// becomes immutable.
func (s *Store) Seed(in Incoming) models.StatusSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.applyRefinements(in)
	if !s.snap.TerminalLocked() {
		s.snap.Status = in.Status
	}
	s.snap.LastUpdatedAt = s.now()
	return s.snap
}

// Apply merges an authoritative observation into the snapshot.
//
// Once the snapshot is terminal-locked, status and TerminalSince are
// kept unchanged regardless of the incoming status; amount, payment
// mode and identifier are still refinable. An incoming terminal status
// on an unlocked snapshot sets the lock exactly once.
func (s *Store) Apply(in Incoming) models.StatusSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.applyRefinements(in)

	if !s.snap.TerminalLocked() {
		s.snap.Status = in.Status
		if in.Status.IsTerminal() {
			at := s.now()
			s.snap.TerminalSince = &at
		}
	}

	s.snap.LastUpdatedAt = s.now()
	return s.snap
}

// applyRefinements updates the fields that remain refinable even after
// terminal lock. Caller holds the mutex.
func (s *Store) applyRefinements(in Incoming) {
	if in.Amount > 0 {
		s.snap.Amount = in.Amount
	}
	if in.PaymentMode != "" {
		s.snap.PaymentMode = in.PaymentMode
	}
	if in.OrderIdentifier != "" {
		if s.snap.OrderIdentifier == "" || in.IdentifierPriority >= s.idPriority {
			s.snap.OrderIdentifier = in.OrderIdentifier
			s.idPriority = in.IdentifierPriority
		}
	}
}

// Snapshot returns a copy of the current reconciled view.
func (s *Store) Snapshot() models.StatusSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// TerminalLocked reports whether the snapshot reached a final status.
func (s *Store) TerminalLocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.TerminalLocked()
}

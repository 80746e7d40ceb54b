package reconciler

import (
	"sync"

	"github.com/google/uuid"

	"payment-reconciler/internal/models"
	"payment-reconciler/internal/poller"
	"payment-reconciler/internal/snapshot"
)

// Session is one live reconciliation: the snapshot for a single order
// plus the poll run keeping it fresh. It exists from the moment the
// status view opens until the view unmounts or a terminal status ends
// polling.
type Session struct {
	id        uuid.UUID
	collectID string
	store     *snapshot.Store
	poll      *poller.Controller

	mu       sync.RWMutex
	errMsg   string
	timedOut bool
}

// ID is the unique id of this reconciliation run.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// OrderKey is the provider collect identifier the session is keyed by.
// It stays stable even after a custom order id supersedes it for
// display.
func (s *Session) OrderKey() string {
	return s.collectID
}

// Snapshot returns the current reconciled view.
func (s *Session) Snapshot() models.StatusSnapshot {
	return s.store.Snapshot()
}

// Err returns the transient error to display, or "". Errors here are
// advisory banners; they never block the last-known snapshot.
func (s *Session) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

// TimedOut reports whether polling hit its wall-clock ceiling before a
// terminal status.
func (s *Session) TimedOut() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timedOut
}

// PollState exposes the poll controller's lifecycle state.
func (s *Session) PollState() poller.State {
	return s.poll.State()
}

// Stop cancels polling. Safe to call at any time, any number of times;
// the view calls it on unmount.
func (s *Session) Stop() {
	s.poll.Stop()
}

func (s *Session) setError(msg string) {
	s.mu.Lock()
	s.errMsg = msg
	s.mu.Unlock()
}

func (s *Session) clearError() {
	s.setError("")
}

func (s *Session) markTimedOut() {
	s.mu.Lock()
	s.timedOut = true
	s.errMsg = "status polling timed out before a final status was reached"
	s.mu.Unlock()
}

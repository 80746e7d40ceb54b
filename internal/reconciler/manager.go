package reconciler

import (
	"context"
	"sync"
)

// Manager is the registry of live sessions, keyed by provider collect
// id. A redirect re-entering the status view reuses the running session
// instead of stacking a second poll loop for the same order.
type Manager struct {
	reconciler *Reconciler

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates an empty session registry.
func NewManager(reconciler *Reconciler) *Manager {
	return &Manager{
		reconciler: reconciler,
		sessions:   make(map[string]*Session),
	}
}

// StartOrGet returns the running session for the redirect's order, or
// starts one.
func (m *Manager) StartOrGet(ctx context.Context, redirect Redirect) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if redirect.OrderID != "" {
		if session, ok := m.sessions[redirect.OrderID]; ok {
			return session, nil
		}
	}

	session, err := m.reconciler.Start(ctx, redirect)
	if err != nil {
		return nil, err
	}

	// The identifier may have come from the resume cache rather than
	// the redirect; key by whatever the session resolved.
	if existing, ok := m.sessions[session.OrderKey()]; ok {
		session.Stop()
		return existing, nil
	}

	m.sessions[session.OrderKey()] = session
	return session, nil
}

// Get returns the session for an order key.
func (m *Manager) Get(orderKey string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[orderKey]
	return session, ok
}

// Stop halts and forgets the session for an order key. Reports whether
// one existed.
func (m *Manager) Stop(orderKey string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[orderKey]
	if !ok {
		return false
	}
	session.Stop()
	delete(m.sessions, orderKey)
	return true
}

// StopAll halts every live session; used on shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, session := range m.sessions {
		session.Stop()
		delete(m.sessions, key)
	}
}

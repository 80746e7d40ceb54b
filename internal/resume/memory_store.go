package resume

import (
	"context"
	"sync"

	"payment-reconciler/internal/models"
)

// MemoryStore is an in-process Store for tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]models.ResumeRecord
	latest  string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]models.ResumeRecord),
	}
}

func (s *MemoryStore) Save(ctx context.Context, record *models.ResumeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ProviderCollectID] = *record
	s.latest = record.ProviderCollectID
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, providerCollectID string) (*models.ResumeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[providerCollectID]
	if !ok {
		return nil, ErrNotFound
	}
	return &record, nil
}

func (s *MemoryStore) Latest(ctx context.Context) (*models.ResumeRecord, error) {
	s.mu.RLock()
	latest := s.latest
	s.mu.RUnlock()
	if latest == "" {
		return nil, ErrNotFound
	}
	return s.Get(ctx, latest)
}

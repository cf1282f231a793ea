package storage

import (
	"context"
	"sync"

	"github.com/lehigh-university-libraries/lccn-resolver/internal/models"
)

// MemoryStore keeps resolutions in process memory only
type MemoryStore struct {
	index *index
	mu    sync.RWMutex
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		index: newIndex(),
	}
}

// Seed loads records without going through Upsert, e.g. a snapshot of a
// durable store for a dry run
func (s *MemoryStore) Seed(records []models.ResolutionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range records {
		s.index.add(record)
	}
}

func (s *MemoryStore) Lookup(_ context.Context, title string) (*models.ResolutionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return recordPtr(s.index.get(title)), nil
}

func (s *MemoryStore) Upsert(_ context.Context, record models.ResolutionRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.add(record), nil
}

func (s *MemoryStore) FindSimilar(_ context.Context, key string, threshold int) (*models.ResolutionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return recordPtr(s.index.similar(key, threshold)), nil
}

func (s *MemoryStore) All(_ context.Context) ([]models.ResolutionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.all(), nil
}

func (s *MemoryStore) Close() error {
	return nil
}

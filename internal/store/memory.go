package store

import (
	"context"
	"fmt"
	"sync"
	"unicode/utf8"

	"knowledgescout/internal/domain"
)

// MemoryStore keeps documents in an ordered slice guarded by a RWMutex.
type MemoryStore struct {
	mu      sync.RWMutex
	docs    []domain.Document
	byID    map[string]int
	maxDocs int
}

func NewMemoryStore(maxDocuments int) *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]int),
		maxDocs: maxDocuments,
	}
}

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) Add(ctx context.Context, doc domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[doc.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, doc.ID)
	}
	if s.maxDocs > 0 && len(s.docs) >= s.maxDocs {
		return ErrFull
	}
	s.byID[doc.ID] = len(s.docs)
	s.docs = append(s.docs, doc)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	doc := s.docs[idx]
	return &doc, nil
}

func (s *MemoryStore) List(ctx context.Context, limit, offset int) ([]domain.Document, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := len(s.docs)
	start, end := window(total, limit, offset)
	out := make([]domain.Document, end-start)
	copy(out, s.docs[start:end])
	return out, total, nil
}

func (s *MemoryStore) All(ctx context.Context) ([]domain.Document, error) {
	docs, _, err := s.List(ctx, 0, 0)
	return docs, err
}

func (s *MemoryStore) Stats(ctx context.Context) (domain.StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := domain.StoreStats{Documents: len(s.docs)}
	for _, d := range s.docs {
		stats.Pages += len(d.Pages)
		stats.Characters += utf8.RuneCountInString(d.Content)
	}
	return stats, nil
}

func (s *MemoryStore) Close() error { return nil }

package history

import (
	"context"
	"sync"
)

// defaultMemCapacity bounds the in-memory utterance ring.
const defaultMemCapacity = 200

// MemStore is an in-memory [Store] used when no database is configured and in
// tests. Utterances beyond the capacity are dropped oldest-first.
type MemStore struct {
	mu         sync.Mutex
	utterances []Utterance // newest last
	terms      []string
	capacity   int
}

var _ Store = (*MemStore)(nil)

// NewMemStore returns an empty in-memory store. A non-positive capacity falls
// back to the default.
func NewMemStore(capacity int) *MemStore {
	if capacity <= 0 {
		capacity = defaultMemCapacity
	}
	return &MemStore{capacity: capacity}
}

func (s *MemStore) Append(_ context.Context, u Utterance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.utterances = append(s.utterances, u)
	if len(s.utterances) > s.capacity {
		s.utterances = s.utterances[len(s.utterances)-s.capacity:]
	}
	return nil
}

func (s *MemStore) Recent(_ context.Context, n int) ([]Utterance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 || n > len(s.utterances) {
		n = len(s.utterances)
	}
	out := make([]Utterance, 0, n)
	for i := len(s.utterances) - 1; i >= len(s.utterances)-n; i-- {
		out = append(out, s.utterances[i])
	}
	return out, nil
}

func (s *MemStore) UserTerms(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.terms))
	copy(out, s.terms)
	return out, nil
}

func (s *MemStore) SaveUserTerms(_ context.Context, terms []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terms = make([]string, len(terms))
	copy(s.terms, terms)
	return nil
}

func (s *MemStore) Close() {}

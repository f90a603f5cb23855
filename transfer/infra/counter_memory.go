package infra

import (
	"context"
	"sync"

	"deal-transfer/transfer/domain"
)

// MemoryCounterStore é uma implementação simples em memória.
// Útil para testes e para rodar sem persistência (dry run).
type MemoryCounterStore struct {
	mu   sync.Mutex
	data domain.Counter
}

func NewMemoryCounterStore(initial domain.Counter) *MemoryCounterStore {
	return &MemoryCounterStore{data: initial.Clone()}
}

func (s *MemoryCounterStore) Load(context.Context) (domain.Counter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Clone(), nil
}

func (s *MemoryCounterStore) Save(_ context.Context, c domain.Counter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = c.Clone()
	return nil
}

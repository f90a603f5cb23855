package infra

import (
	"context"
	"sync"
	"time"

	"deal-transfer/transfer/domain"
)

type Counters struct {
	Passes   int64 `json:"passes"`
	Moved    int64 `json:"moved"`
	Rejected int64 `json:"rejected"`
	Failed   int64 `json:"failed"`
}

// MemoryStatsStore é uma implementação simples em memória.
// Alimenta o endpoint de status; zera quando o processo reinicia.
type MemoryStatsStore struct {
	mu      sync.Mutex
	total   Counters
	byState map[domain.PassState]int64
	last    domain.PassEvent
}

func NewMemoryStatsStore() *MemoryStatsStore {
	return &MemoryStatsStore{byState: make(map[domain.PassState]int64)}
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.PassEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total.Passes++
	s.total.Moved += int64(ev.Moved)
	s.total.Rejected += int64(ev.Rejected)
	s.total.Failed += int64(ev.Failed)
	s.byState[ev.State]++
	s.last = ev
	return nil
}

func (s *MemoryStatsStore) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *MemoryStatsStore) ByState() map[domain.PassState]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.PassState]int64, len(s.byState))
	for k, v := range s.byState {
		out[k] = v
	}
	return out
}

// LastAt devolve o horário do último passe registrado (zero se nenhum).
func (s *MemoryStatsStore) LastAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last.At
}

// Package memory implements the durable cross-session fact store. Facts are
// append-only; writing a fact that already exists in a scope is a no-op.
package memory

import (
	"context"
	"sync"

	contractx "github.com/napat-k/Aftersale-Support-Agent/agent/contract"
)

// InMemoryStore keeps facts in a process-local map.
type InMemoryStore struct {
	mu    sync.RWMutex
	facts map[string][]contractx.MemoryFact
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{facts: make(map[string][]contractx.MemoryFact)}
}

func (s *InMemoryStore) Read(_ context.Context, scope string) ([]contractx.MemoryFact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.facts[scope]
	out := make([]contractx.MemoryFact, len(stored))
	copy(out, stored)
	return out, nil
}

func (s *InMemoryStore) Write(_ context.Context, scope string, fact contractx.MemoryFact) error {
	fact.Scope = scope
	s.mu.Lock()
	defer s.mu.Unlock()
	if containsFact(s.facts[scope], fact) {
		return nil
	}
	s.facts[scope] = append(s.facts[scope], fact)
	return nil
}

func containsFact(facts []contractx.MemoryFact, fact contractx.MemoryFact) bool {
	for _, f := range facts {
		if f.Key == fact.Key && f.Value == fact.Value {
			return true
		}
	}
	return false
}

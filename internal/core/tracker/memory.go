package tracker

import (
	"context"
	"sync"
)

// MemoryStore keeps tracker state in process memory. It backs tests and
// one-off CLI runs that must not touch persisted state.
type MemoryStore struct {
	mu     sync.Mutex
	stages map[Stage]map[Kind][]string
	saves  int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{stages: make(map[Stage]map[Kind][]string)}
}

func (s *MemoryStore) Load(_ context.Context, stage Stage) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, ok := s.stages[stage]
	if !ok {
		return Snapshot{}, nil
	}
	out := make(map[Kind][]string, len(entries))
	for k, names := range entries {
		out[k] = append([]string(nil), names...)
	}
	return Snapshot{Exists: true, Entries: out}, nil
}

func (s *MemoryStore) Save(_ context.Context, stage Stage, kind Kind, names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stages[stage] == nil {
		s.stages[stage] = make(map[Kind][]string)
	}
	s.stages[stage][kind] = append([]string(nil), names...)
	s.saves++
	return nil
}

// Saves counts Save calls.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

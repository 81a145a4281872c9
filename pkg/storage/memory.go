package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore keeps all monitor state in process memory. It is rebuilt from
// scratch on restart, which matches the service's no-persistence contract.
type MemoryStore struct {
	mu     sync.RWMutex
	series map[string]*series
}

type series struct {
	retention    int
	observations []Observation
	state        AlertState
	hasState     bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{series: make(map[string]*series)}
}

func (s *MemoryStore) Register(name string, retention int) error {
	if name == "" {
		return fmt.Errorf("register: empty monitor name")
	}
	if retention <= 0 {
		return fmt.Errorf("register %s: retention must be positive, got %d", name, retention)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.series[name]; ok {
		return fmt.Errorf("register %s: already registered", name)
	}
	s.series[name] = &series{
		retention:    retention,
		observations: make([]Observation, 0, retention),
	}
	return nil
}

func (s *MemoryStore) Record(ctx context.Context, monitor string, obs Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sr, ok := s.series[monitor]
	if !ok {
		return fmt.Errorf("record %s: %w", monitor, ErrUnknownMonitor)
	}

	if n := len(sr.observations); n > 0 {
		head := sr.observations[n-1]
		if !obs.Timestamp.After(head.Timestamp) {
			return fmt.Errorf("record %s: %w", monitor, ErrDuplicateObservation)
		}
	}

	if len(sr.observations) >= sr.retention {
		// FIFO eviction, oldest first.
		copy(sr.observations, sr.observations[1:])
		sr.observations[len(sr.observations)-1] = obs
	} else {
		sr.observations = append(sr.observations, obs)
	}
	return nil
}

func (s *MemoryStore) History(ctx context.Context, monitor string, limit int) ([]Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sr, ok := s.series[monitor]
	if !ok {
		return nil, fmt.Errorf("history %s: %w", monitor, ErrUnknownMonitor)
	}

	obs := sr.observations
	if limit > 0 && len(obs) > limit {
		obs = obs[len(obs)-limit:]
	}

	out := make([]Observation, len(obs))
	copy(out, obs)
	return out, nil
}

func (s *MemoryStore) State(ctx context.Context, monitor string) (AlertState, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sr, ok := s.series[monitor]
	if !ok {
		return AlertState{}, false, fmt.Errorf("state %s: %w", monitor, ErrUnknownMonitor)
	}
	return sr.state, sr.hasState, nil
}

func (s *MemoryStore) SetState(ctx context.Context, monitor string, state AlertState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sr, ok := s.series[monitor]
	if !ok {
		return fmt.Errorf("set state %s: %w", monitor, ErrUnknownMonitor)
	}
	sr.state = state
	sr.hasState = true
	return nil
}

func (s *MemoryStore) Monitors() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.series))
	for name := range s.series {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

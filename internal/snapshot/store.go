// Package snapshot holds the last known state of every ventilation system.
package snapshot

import (
	"sync"
	"time"

	"brink_bridge/internal/mapper"
	"brink_bridge/internal/types"
)

// Store is the shared system snapshot. Readers always get deep copies.
type Store struct {
	mu        sync.RWMutex
	systems   []types.System
	updatedAt time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// Replace swaps in a freshly refreshed system list.
func (s *Store) Replace(systems []types.System) {
	cp := cloneSystems(systems)

	s.mu.Lock()
	s.systems = cp
	s.updatedAt = time.Now()
	s.mu.Unlock()
}

// Systems returns a copy of all systems.
func (s *Store) Systems() []types.System {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSystems(s.systems)
}

// System returns a copy of the system identified by the pair.
func (s *Store) System(systemID, gatewayID string) (types.System, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.systems {
		if s.systems[i].SameUnit(systemID, gatewayID) {
			return cloneSystem(s.systems[i]), true
		}
	}
	return types.System{}, false
}

// UpdatedAt returns when the snapshot was last replaced.
func (s *Store) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// ApplyWrite patches echoed write values into the stored system.
// It reports false when the system is unknown.
func (s *Store) ApplyWrite(systemID, gatewayID string, result types.WriteResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.systems {
		if s.systems[i].SameUnit(systemID, gatewayID) {
			mapper.ApplyWriteResult(&s.systems[i], result)
			return true
		}
	}
	return false
}

func cloneSystems(in []types.System) []types.System {
	if in == nil {
		return nil
	}
	out := make([]types.System, len(in))
	for i := range in {
		out[i] = cloneSystem(in[i])
	}
	return out
}

func cloneSystem(in types.System) types.System {
	out := in
	if in.Parameters != nil {
		out.Parameters = make(map[string]*types.Parameter, len(in.Parameters))
		for role, p := range in.Parameters {
			out.Parameters[role] = p.Clone()
		}
	}
	return out
}

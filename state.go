package starapi

import "sync"

// State is a concurrency-safe key/value bag shared by every handler of an
// application. Typical use is stashing long-lived dependencies at startup.
type State struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewState creates an empty state bag.
func NewState() *State {
	return &State{values: make(map[string]any)}
}

// Set stores a value.
func (s *State) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Get returns a stored value and whether it exists.
func (s *State) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// MustGet returns a stored value and panics when absent.
func (s *State) MustGet(key string) any {
	v, ok := s.Get(key)
	if !ok {
		panic("starapi: no state value for key " + key)
	}
	return v
}

// Delete removes a stored value.
func (s *State) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

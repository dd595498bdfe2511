package party

import "sync"

// SnapshotStore is the fast in-process durable tier: every roster or
// game-state mutation is written here synchronously before broadcasting. The
// hosting model's key-value storage backs this in production; the in-memory
// implementation stands in for it and keeps the persisted shape honest by
// storing marshalled bytes rather than live pointers.
type SnapshotStore interface {
	Put(partyID string, state []byte) error
	Get(partyID string) ([]byte, bool)
	Delete(partyID string)
}

type memorySnapshots struct {
	mu     sync.RWMutex
	states map[string][]byte
}

// NewMemorySnapshots returns an in-process snapshot store.
func NewMemorySnapshots() SnapshotStore {
	return &memorySnapshots{states: make(map[string][]byte)}
}

func (s *memorySnapshots) Put(partyID string, state []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(state))
	copy(buf, state)
	s.states[partyID] = buf
	return nil
}

func (s *memorySnapshots) Get(partyID string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[partyID]
	return state, ok
}

func (s *memorySnapshots) Delete(partyID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, partyID)
}

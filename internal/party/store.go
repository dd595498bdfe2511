package party

import "sync"

// RoomStore holds the live rooms, keyed by party id ("<kind>-<code>").
type RoomStore struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

func NewRoomStore() *RoomStore {
	return &RoomStore{rooms: make(map[string]*Room)}
}

func (s *RoomStore) Get(partyID string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[partyID]
	return room, ok
}

// PutIfAbsent registers a room unless one already exists for the id, in
// which case the existing room wins (concurrent restores race here).
func (s *RoomStore) PutIfAbsent(room *Room) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.rooms[room.partyID]; ok {
		return existing
	}
	s.rooms[room.partyID] = room
	return room
}

func (s *RoomStore) Delete(partyID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, partyID)
}

func (s *RoomStore) Has(partyID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rooms[partyID]
	return ok
}

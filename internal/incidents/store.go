package incidents

import "sync"

// Store is the canonical, newest-first incident collection. The hub is its
// only writer; readers get copies so nothing outside can alias stored data.
type Store struct {
	mu    sync.RWMutex
	items []Incident
}

func NewStore(seed []Incident) *Store {
	return &Store{items: cloneAll(seed)}
}

func (s *Store) Snapshot() []Incident {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.items)
}

func (s *Store) Get(id string) (Incident, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := IndexOf(s.items, id)
	if idx < 0 {
		return Incident{}, false
	}
	return s.items[idx].Clone(), true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Insert puts inc at the front of the collection.
func (s *Store) Insert(inc Incident) Incident {
	stored := inc.Clone()
	s.mu.Lock()
	s.items = Prepend(s.items, stored)
	s.mu.Unlock()
	return stored.Clone()
}

// Upsert replaces the record with inc's id in place or prepends inc when no
// such record exists. The stored CreatedAt survives a replace. The returned
// flag reports whether a record was replaced.
func (s *Store) Upsert(inc Incident) (Incident, bool) {
	stored := inc.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := IndexOf(s.items, inc.IncidentID)
	if idx >= 0 && !s.items[idx].CreatedAt.IsZero() {
		stored.CreatedAt = s.items[idx].CreatedAt
	}
	s.items = Merge(s.items, stored)
	return stored.Clone(), idx >= 0
}

// Modify applies fn to the stored record with the given id under the write
// lock and returns the result.
func (s *Store) Modify(id string, fn func(*Incident)) (Incident, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := IndexOf(s.items, id)
	if idx < 0 {
		return Incident{}, false
	}
	next := s.items[idx].Clone()
	createdAt := next.CreatedAt
	fn(&next)
	next.IncidentID = id
	next.CreatedAt = createdAt
	s.items = Merge(s.items, next)
	return next.Clone(), true
}

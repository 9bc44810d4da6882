package domain

import (
	"sort"
	"sync"
)

// FollowSet is the set of user ids whose posts this client accepts. It always
// contains the client's own id and never shrinks. The control loop writes it
// on a successful follow while the listener reads it for every inbound post.
type FollowSet struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewFollowSet returns a follow set seeded with selfID.
func NewFollowSet(selfID string) *FollowSet {
	return &FollowSet{
		ids: map[string]struct{}{selfID: {}},
	}
}

// Add inserts id and reports whether it was not already present.
func (s *FollowSet) Add(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Contains reports whether id is followed.
func (s *FollowSet) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of followed ids, self included.
func (s *FollowSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// List returns the followed ids in sorted order.
func (s *FollowSet) List() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

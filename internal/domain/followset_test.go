package domain

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFollowSet(t *testing.T) {
	s := NewFollowSet("alice")

	if !s.Contains("alice") {
		t.Error("follow set does not contain self")
	}
	if !s.Add("bob") {
		t.Error("Add(bob) = false on first insert")
	}
	if s.Add("bob") {
		t.Error("Add(bob) = true on duplicate insert")
	}
	if s.Add("alice") {
		t.Error("Add(alice) = true for self")
	}

	if diff := cmp.Diff([]string{"alice", "bob"}, s.List()); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
}

func TestFollowSet_ConcurrentAddAndContains(t *testing.T) {
	s := NewFollowSet("self")
	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for _, id := range ids {
			s.Add(id)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			s.Contains(ids[i%len(ids)])
		}
	}()
	wg.Wait()

	if s.Len() != len(ids)+1 {
		t.Errorf("Len() = %d, want %d", s.Len(), len(ids)+1)
	}
}

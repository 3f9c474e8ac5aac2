package spatial

import (
	"sync/atomic"
)

// Store holds the current snapshot. Readers Load it lock-free; a single
// rebuild writer replaces it wholesale with Swap.
type Store struct {
	current atomic.Pointer[Snapshot]
	swaps   atomic.Uint64
}

// NewStore creates a store holding an empty snapshot.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(Empty())
	return s
}

// Load returns the current snapshot. It is never nil.
func (s *Store) Load() *Snapshot {
	return s.current.Load()
}

// Swap installs next and returns the previous snapshot. A nil next is ignored.
func (s *Store) Swap(next *Snapshot) *Snapshot {
	if next == nil {
		return s.Load()
	}
	s.swaps.Add(1)
	return s.current.Swap(next)
}

// Swaps counts installed snapshots.
func (s *Store) Swaps() uint64 {
	return s.swaps.Load()
}

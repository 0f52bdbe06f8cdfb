// Package repository holds the per-session caches that map code addresses
// to symbols and module base addresses to loaded modules.
//
// Repositories are not safe for concurrent mutation. They are written by a
// single sampling goroutine; readers on other goroutines must synchronize
// externally or work on a Snapshot.
package repository

// SymbolID is an opaque handle into a SymbolRepository.
// The zero value is None.
type SymbolID uint32

// ModuleID is an opaque handle into a ModuleRepository.
// The zero value is None.
type ModuleID uint32

const (
	// NoSymbol marks a frame whose symbol could not be resolved.
	NoSymbol SymbolID = 0
	// NoModule marks an address whose module could not be resolved.
	NoModule ModuleID = 0
)

func (id SymbolID) IsNone() bool { return id == NoSymbol }

func (id ModuleID) IsNone() bool { return id == NoModule }

// store is an append-only address-keyed table. Ids are slot index + 1 so
// that the zero id stays free for the None sentinel.
type store[ID ~uint32, T any] struct {
	ids     map[uint64]ID
	entries []T
}

func newStore[ID ~uint32, T any]() store[ID, T] {
	return store[ID, T]{
		ids: make(map[uint64]ID),
	}
}

func (s *store[ID, T]) add(addr uint64, v T) ID {
	if id, ok := s.ids[addr]; ok {
		return id
	}
	s.entries = append(s.entries, v)
	id := ID(len(s.entries))
	s.ids[addr] = id

	return id
}

func (s *store[ID, T]) id(addr uint64) ID {
	return s.ids[addr]
}

func (s *store[ID, T]) get(id ID) (T, bool) {
	var zero T
	if id == 0 || int(id) > len(s.entries) {
		return zero, false
	}

	return s.entries[id-1], true
}

func (s *store[ID, T]) count() int {
	return len(s.entries)
}

func (s *store[ID, T]) snapshot() []T {
	out := make([]T, len(s.entries))
	copy(out, s.entries)

	return out
}

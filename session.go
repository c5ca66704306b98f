package converse

import (
	"sync"
	"time"
)

// Store is an append-only, ordered conversation log. Entries are never
// mutated or reordered once appended. A Store belongs to exactly one
// conversation; it is safe for concurrent readers while a single loop
// appends.
type Store struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewStore returns a store seeded with the given entries.
func NewStore(seed ...Entry) *Store {
	s := &Store{}
	for _, e := range seed {
		s.Append(e)
	}
	return s
}

// Append adds an entry to the end of the log. The entry's parts are copied so
// later changes to the caller's slice do not leak into history.
func (s *Store) Append(e Entry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	e = cloneEntry(e)

	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()
}

// Entries returns a copy of the log in insertion order.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneEntries(s.entries)
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Since returns a copy of the entries appended at or after index i.
func (s *Store) Since(i int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 {
		i = 0
	}
	if i >= len(s.entries) {
		return nil
	}
	return cloneEntries(s.entries[i:])
}

func cloneEntries(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = cloneEntry(e)
	}
	return out
}

// cloneEntry copies the part slice so callers never share backing arrays
// with the log. Part values themselves are immutable by convention.
func cloneEntry(e Entry) Entry {
	if e.Parts != nil {
		parts := make([]Part, len(e.Parts))
		copy(parts, e.Parts)
		e.Parts = parts
	}
	return e
}

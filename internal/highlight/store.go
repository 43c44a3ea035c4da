package highlight

import "sync"

// Store owns the installed indexes, one per document path. Readers see
// either the previous or the replacement index for a path, never a mix.
//
// Every install carries a generation taken with Reserve. A path only moves
// forward: an index built for an older generation than the one installed
// (or removed) for its path is dropped.
type Store struct {
	mu    sync.RWMutex
	files map[string]*Index
	gens  map[string]uint64
	next  uint64
	floor uint64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{files: make(map[string]*Index), gens: make(map[string]uint64)}
}

// Reserve returns a generation newer than every one handed out before.
// Take it when the request for an index arrives, not when the index is
// ready.
func (s *Store) Reserve() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return s.next
}

// Install installs idx for idx.Path unless a newer generation was already
// installed or removed for that path. It reports whether idx was installed.
func (s *Store) Install(idx *Index, gen uint64) bool {
	if idx == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen <= s.floor || gen < s.gens[idx.Path] {
		return false
	}
	s.files[idx.Path] = idx
	s.gens[idx.Path] = gen
	return true
}

// Replace installs idx for idx.Path with a fresh generation, discarding
// whatever was there.
func (s *Store) Replace(idx *Index) {
	s.Install(idx, s.Reserve())
}

// Get returns the index installed for path.
func (s *Store) Get(path string) (*Index, bool) {
	s.mu.RLock()
	idx, ok := s.files[path]
	s.mu.RUnlock()
	return idx, ok
}

// Remove drops the index for path. Runs reserved before the removal can no
// longer install one.
func (s *Store) Remove(path string) {
	s.mu.Lock()
	delete(s.files, path)
	s.next++
	s.gens[path] = s.next
	s.mu.Unlock()
}

// Reset drops every index and rejects every generation reserved so far.
func (s *Store) Reset() {
	s.mu.Lock()
	s.files = make(map[string]*Index)
	s.gens = make(map[string]uint64)
	s.floor = s.next
	s.mu.Unlock()
}

// Len reports how many documents are indexed.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

// Definition looks up a goto target in the index for path.
func (s *Store) Definition(path string, line, col int) (GotoTarget, bool) {
	idx, ok := s.Get(path)
	if !ok {
		return GotoTarget{}, false
	}
	return idx.Definition(line, col)
}

// Hover looks up documentation in the index for path.
func (s *Store) Hover(path string, line, col int) (HoverEntry, bool) {
	idx, ok := s.Get(path)
	if !ok {
		return HoverEntry{}, false
	}
	return idx.Hover(line, col)
}

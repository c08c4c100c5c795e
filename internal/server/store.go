package server

import (
	"sync"

	"github.com/google/btree"
)

const btreeDegree = 32

type entry struct {
	key   string
	value string
}

func entryLess(a, b entry) bool {
	return a.key < b.key
}

// Store is an in-memory string map kept in key order.
// Every method is atomic with respect to the others.
type Store struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[entry]
}

func NewStore() *Store {
	return &Store{tree: btree.NewG(btreeDegree, entryLess)}
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.ReplaceOrInsert(entry{key: key, value: value})
}

func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.tree.Get(entry{key: key})
	return e.value, ok
}

func (s *Store) Exists(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Has(entry{key: key})
}

// Del removes key and reports whether it was present.
func (s *Store) Del(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tree.Delete(entry{key: key})
	return ok
}

// Keys returns every key in ascending order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, s.tree.Len())
	s.tree.Ascend(func(e entry) bool {
		keys = append(keys, e.key)
		return true
	})
	return keys
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Len()
}

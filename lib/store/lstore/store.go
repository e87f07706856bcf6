package lstore

import (
	"maps"
	"slices"
	"sync"

	"github.com/ValentinKolb/txkv/lib/store"
)

type storeImpl struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewLocalStore creates a new, empty local store instance.
// This store keeps the committed mapping in memory, durability is handled
// by the transaction manager through the persist package.
func NewLocalStore() store.IStore {
	return &storeImpl{
		data: make(map[string][]byte),
	}
}

// copyValue returns a copy of value. A nil value is stored as an empty value,
// since absence is represented by a missing key and not by a nil slice.
func copyValue(value []byte) []byte {
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)
	return valueCopy
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.data[key]
	if !ok {
		return nil, false
	}
	return copyValue(val), true
}

func (s *storeImpl) GetAll() map[string][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string][]byte, len(s.data))
	for key, val := range s.data {
		result[key] = copyValue(val)
	}
	return result
}

func (s *storeImpl) Apply(changes map[string][]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// sorted order, so that applying a change set is deterministic
	for _, key := range slices.Sorted(maps.Keys(changes)) {
		s.data[key] = copyValue(changes[key])
	}
}

func (s *storeImpl) Replace(mapping map[string][]byte) {
	data := make(map[string][]byte, len(mapping))
	for key, val := range mapping {
		data[key] = copyValue(val)
	}

	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
}

func (s *storeImpl) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

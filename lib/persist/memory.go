package persist

import "sync"

type memoryPersistence struct {
	mu       sync.Mutex
	snapshot map[string][]byte
}

// NewMemoryPersistence creates a persistence that keeps the last saved snapshot in memory.
// Nothing survives a process restart, it is used when no data file is configured.
func NewMemoryPersistence() IPersistence {
	return &memoryPersistence{}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see persist/interface.go)
// --------------------------------------------------------------------------

func (p *memoryPersistence) Save(mapping map[string][]byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshot = cloneMapping(mapping)
	return nil
}

func (p *memoryPersistence) Load() (map[string][]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cloneMapping(p.snapshot), nil
}

func cloneMapping(mapping map[string][]byte) map[string][]byte {
	result := make(map[string][]byte, len(mapping))
	for key, val := range mapping {
		valCopy := make([]byte, len(val))
		copy(valCopy, val)
		result[key] = valCopy
	}
	return result
}

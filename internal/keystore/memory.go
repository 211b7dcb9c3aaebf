package keystore

import (
	"fmt"
	"sync"
)

// MemoryStore holds key entries in process memory only. IDs and non-empty
// tags are unique among live entries.
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[string]*KeyEntry
	byTag map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:  make(map[string]*KeyEntry),
		byTag: make(map[string]string),
	}
}

func (m *MemoryStore) Put(entry *KeyEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, dup := m.byID[entry.ID]; dup {
		return fmt.Errorf("%w: id %s", ErrKeyAlreadyExists, entry.ID)
	}
	if entry.Tag != "" {
		if _, dup := m.byTag[entry.Tag]; dup {
			return fmt.Errorf("%w: tag %s", ErrKeyAlreadyExists, entry.Tag)
		}
		m.byTag[entry.Tag] = entry.ID
	}
	m.byID[entry.ID] = entry
	return nil
}

func (m *MemoryStore) Get(id string) (*KeyEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if e, ok := m.byID[id]; ok {
		return e, nil
	}
	return nil, ErrKeyNotFound
}

func (m *MemoryStore) FindByTag(tag string) (*KeyEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if id, ok := m.byTag[tag]; ok {
		return m.byID[id], nil
	}
	return nil, ErrKeyNotFound
}

// List returns entries of the given class, or all entries when filter is 0.
func (m *MemoryStore) List(filter KeyClass) ([]*KeyEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*KeyEntry, 0, len(m.byID))
	for _, e := range m.byID {
		if filter != 0 && e.Class != filter {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Delete drops the entry and zeroes its sealed material.
func (m *MemoryStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.byID[id]
	if !ok {
		return ErrKeyNotFound
	}
	if e.Tag != "" && m.byTag[e.Tag] == id {
		delete(m.byTag, e.Tag)
	}
	delete(m.byID, id)
	clear(e.Sealed)
	return nil
}

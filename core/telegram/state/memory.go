package state

import (
	"context"
	"maps"
	"sync"
)

// MemoryStorage keeps FSM records in process memory. Records are lost on restart.
type MemoryStorage struct {
	mu     sync.RWMutex
	states map[Key]State
	data   map[Key]map[string]any
}

// NewMemoryStorage constructs an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		states: make(map[Key]State),
		data:   make(map[Key]map[string]any),
	}
}

// SetState stores st for key, or removes the state when st is StateIdle.
func (m *MemoryStorage) SetState(_ context.Context, key Key, st State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st == StateIdle {
		delete(m.states, key)
		return nil
	}
	m.states[key] = st
	return nil
}

// GetState returns the state for key, or StateIdle if none exists.
func (m *MemoryStorage) GetState(_ context.Context, key Key) (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.states[key], nil
}

// SetData replaces the data for key. A copy is stored so callers may reuse the map.
func (m *MemoryStorage) SetData(_ context.Context, key Key, data map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(data) == 0 {
		delete(m.data, key)
		return nil
	}
	m.data[key] = maps.Clone(data)
	return nil
}

// GetData returns a copy of the data for key; never nil.
func (m *MemoryStorage) GetData(_ context.Context, key Key) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]any, len(m.data[key]))
	maps.Copy(out, m.data[key])
	return out, nil
}

// Close drops every record.
func (m *MemoryStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.states)
	clear(m.data)
	return nil
}

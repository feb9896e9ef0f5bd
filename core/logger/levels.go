package logger

import (
	"log/slog"
	"sync"
)

// levelTable keeps per-component minimum levels shared by every handler clone.
type levelTable struct {
	mu     sync.RWMutex
	levels map[string]slog.Level
}

func newLevelTable() *levelTable {
	return &levelTable{levels: make(map[string]slog.Level)}
}

func (t *levelTable) Set(component string, level slog.Level) {
	if t == nil || component == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.levels[component] = level
}

func (t *levelTable) Delete(component string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.levels, component)
}

// Allows reports whether a record of level passes the override for component.
// Components without an override always pass.
func (t *levelTable) Allows(component string, level slog.Level) bool {
	if t == nil {
		return true
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	min, ok := t.levels[component]
	if !ok {
		return true
	}
	return level >= min
}

package artifact

import (
	"sync"

	"github.com/hupe1980/agentgrid/core"
)

// InMemoryStore is an in-process OutputStore implementation useful for
// tests, examples and single-process deployments. It keeps all outputs in a
// nested map guarded by an RWMutex. Data is copied on save and retrieval to
// avoid accidental external mutation of internal buffers.
//
// Layout: runID -> nodeID -> raw bytes
//
// This implementation is intentionally minimal; it does not enforce retention
// limits, size quotas, or eviction. Outputs live for the lifetime of the run
// unless explicitly purged.
type InMemoryStore struct {
	mu      sync.RWMutex
	outputs map[string]map[string][]byte
}

// NewInMemoryStore returns an empty in-memory output store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{outputs: make(map[string]map[string][]byte)}
}

// Put stores (or overwrites) the output bytes for the given run and node.
// The input slice is copied before storage.
func (a *InMemoryStore) Put(runID, nodeID string, output []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.outputs[runID]; !exists {
		a.outputs[runID] = make(map[string][]byte)
	}
	cp := make([]byte, len(output))
	copy(cp, output)
	a.outputs[runID][nodeID] = cp
	return nil
}

// Get returns a copy of the stored output bytes or core.ErrOutputNotFound.
func (a *InMemoryStore) Get(runID, nodeID string) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	m, ok := a.outputs[runID]
	if !ok {
		return nil, core.ErrOutputNotFound
	}
	data, ok := m[nodeID]
	if !ok {
		return nil, core.ErrOutputNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// Purge discards all outputs belonging to a run.
func (a *InMemoryStore) Purge(runID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.outputs, runID)
}

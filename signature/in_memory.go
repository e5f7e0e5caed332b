package signature

import (
	"sync"

	"github.com/hupe1980/agentgrid/core"
)

// runSignatures holds the signatures of a single run behind its own lock.
type runSignatures struct {
	mu      sync.RWMutex
	entries map[string]string
}

// InMemoryStore is a volatile SignatureStore implementation keeping
// signatures in per-run shards. Entries live for the lifetime of the run
// unless explicitly purged; there is no implicit eviction.
type InMemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*runSignatures
}

// NewInMemoryStore constructs an empty in-memory signature store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{runs: make(map[string]*runSignatures)}
}

// shard returns the run's shard, creating it lazily.
func (s *InMemoryStore) shard(runID string) *runSignatures {
	s.mu.RLock()
	run, ok := s.runs[runID]
	s.mu.RUnlock()
	if ok {
		return run
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if run, ok = s.runs[runID]; ok {
		return run
	}
	run = &runSignatures{entries: make(map[string]string)}
	s.runs[runID] = run
	return run
}

// Put records the signature for a node in a run. Latest write wins.
func (s *InMemoryStore) Put(runID, nodeID, signature string) error {
	run := s.shard(runID)
	run.mu.Lock()
	defer run.mu.Unlock()
	run.entries[nodeID] = signature
	return nil
}

// Get returns the signature for a node and whether one exists.
func (s *InMemoryStore) Get(runID, nodeID string) (string, bool) {
	s.mu.RLock()
	run, ok := s.runs[runID]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}

	run.mu.RLock()
	defer run.mu.RUnlock()
	sig, ok := run.entries[nodeID]
	return sig, ok
}

// GetInputs assembles the dependency-id → signature mapping for a dependent
// node. A dependency with no recorded signature yields a
// *core.MissingSignatureError, which signals a scheduling ordering violation.
func (s *InMemoryStore) GetInputs(runID string, dependencyIDs []string) (map[string]string, error) {
	inputs := make(map[string]string, len(dependencyIDs))
	for _, dep := range dependencyIDs {
		sig, ok := s.Get(runID, dep)
		if !ok {
			return nil, &core.MissingSignatureError{RunID: runID, NodeID: dep}
		}
		inputs[dep] = sig
	}
	return inputs, nil
}

// All returns a copy of every recorded signature for a run keyed by node id.
func (s *InMemoryStore) All(runID string) map[string]string {
	s.mu.RLock()
	run, ok := s.runs[runID]
	s.mu.RUnlock()
	if !ok {
		return map[string]string{}
	}

	run.mu.RLock()
	defer run.mu.RUnlock()
	out := make(map[string]string, len(run.entries))
	for k, v := range run.entries {
		out[k] = v
	}
	return out
}

// Purge discards all signatures belonging to a run.
func (s *InMemoryStore) Purge(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, runID)
}

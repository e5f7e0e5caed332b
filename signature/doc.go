// Package signature provides the in-memory thought-signature store.
//
// Signatures are keyed by (run id, node id). The store shards per run: the
// outer map is guarded by one RWMutex, while each run owns its own lock, so
// unrelated runs never serialize against each other.
package signature

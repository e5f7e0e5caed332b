package core

// SignatureStore persists thought signatures keyed by (run id, node id). A
// signature is opaque continuation state an execution backend needs to keep
// reasoning continuity across invocations; it is written exactly once when a
// node completes and read by each direct dependent before that dependent is
// invoked.
//
// Concurrency contract: implementations must be safe for many runs and many
// nodes within a run to read and write simultaneously. Writes for distinct
// (run, node) keys never conflict, and a read racing a write for the same key
// observes either the pre-write or post-write value atomically.
type SignatureStore interface {
	// Put records the signature for a node in a run. Latest write wins.
	Put(runID, nodeID, signature string) error

	// Get returns the signature for a node. The boolean reports presence.
	Get(runID, nodeID string) (string, bool)

	// GetInputs assembles the dependency-id → signature mapping a dependent
	// node consumes. Every completed node records a signature (possibly
	// empty), so a dependency id with no entry means the scheduler invoked
	// the dependent too early; that yields a *MissingSignatureError.
	GetInputs(runID string, dependencyIDs []string) (map[string]string, error)

	// All returns every recorded signature for a run, keyed by node id.
	All(runID string) map[string]string

	// Purge discards all signatures belonging to a run.
	Purge(runID string)
}

// OutputStore persists node output payloads keyed by (run id, node id) so
// dependents can consume upstream results as structured input. Outputs live
// as long as the run unless explicitly purged.
type OutputStore interface {
	// Put records a node's output payload. Latest write wins.
	Put(runID, nodeID string, output []byte) error

	// Get returns a node's output payload or ErrOutputNotFound.
	Get(runID, nodeID string) ([]byte, error)

	// Purge discards all outputs belonging to a run.
	Purge(runID string)
}

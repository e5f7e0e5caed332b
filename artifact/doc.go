// Package artifact contains concrete implementations of core.OutputStore.
//
// The canonical OutputStore interface lives in the core package to avoid
// dependency cycles and keep domain contracts central. Implementation
// packages like this one (in-memory, object stores, databases) provide
// storage backends that can be swapped without touching calling code.
//
// Node outputs are the data counterpart of thought signatures: a dependent
// node consumes its dependencies' outputs as structured input while the
// signatures carry the backend's reasoning continuity.
package artifact

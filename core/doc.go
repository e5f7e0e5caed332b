// Package core provides the foundational domain types and interfaces used by
// AgentGrid. It defines the core abstractions for:
//
//   - Agent nodes (units of orchestrated work and their workflow configuration)
//   - Execution plans (validated, immutable DAG snapshots)
//   - Run & node lifecycle statuses
//   - Runtime events (immutable orchestration records)
//   - Pluggable stores for thought signatures and node outputs
//   - The error taxonomy shared across validation, scheduling and invocation
//
// The package intentionally keeps implementation concerns (validation
// algorithms, state machine, engine orchestration, concrete stores) out of
// scope, exposing small interfaces to enable custom backends and extensions.
package core

// Package workflow validates declarative workflow configurations and turns
// them into immutable execution plans.
//
// Validate is a pure function: it performs unknown-dependency resolution,
// cycle detection (three-color depth-first traversal) and deterministic
// topological ordering without side effects, so it is safe to call repeatedly
// and concurrently for different workflows. Load and LoadFile additionally
// decode configurations from JSON or YAML for file-driven setups.
package workflow

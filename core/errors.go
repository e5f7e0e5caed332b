package core

import (
	"errors"
	"fmt"
)

// GraphErrorKind enumerates the validation failures a WorkflowConfig can
// produce. Graph errors are raised before any run exists and are always
// recoverable by fixing the configuration and resubmitting.
type GraphErrorKind string

const (
	// GraphUnknownDependency means a node depends on an id that names no node
	// in the same workflow.
	GraphUnknownDependency GraphErrorKind = "unknown_dependency"
	// GraphCycleDetected means the dependency edges contain a cycle.
	GraphCycleDetected GraphErrorKind = "cycle_detected"
	// GraphDuplicateNode means two nodes in the workflow share an id.
	GraphDuplicateNode GraphErrorKind = "duplicate_node"
	// GraphEmptyWorkflow means the workflow declares no nodes.
	GraphEmptyWorkflow GraphErrorKind = "empty_workflow"
)

// GraphError reports a structural defect in a workflow configuration. NodeID
// names the offending node (for cycles, one node on the cycle); Dependency is
// set for unknown-dependency errors.
type GraphError struct {
	Kind       GraphErrorKind
	NodeID     string
	Dependency string
}

// Error implements the error interface.
func (e *GraphError) Error() string {
	switch e.Kind {
	case GraphUnknownDependency:
		return fmt.Sprintf("node %q depends on unknown node %q", e.NodeID, e.Dependency)
	case GraphCycleDetected:
		return fmt.Sprintf("dependency cycle detected through node %q", e.NodeID)
	case GraphDuplicateNode:
		return fmt.Sprintf("duplicate node id %q", e.NodeID)
	case GraphEmptyWorkflow:
		return "workflow declares no agent nodes"
	default:
		return fmt.Sprintf("invalid workflow graph (node %q)", e.NodeID)
	}
}

// InvalidTransitionError reports an attempted node state transition that the
// state machine refused. Seeing one in normal operation indicates a
// scheduling-loop bug; it is surfaced, never swallowed, and the prior state
// is left unchanged.
type InvalidTransitionError struct {
	RunID  string
	NodeID string
	From   NodeStatus
	To     NodeStatus
	Reason string
}

// Error implements the error interface.
func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("invalid transition %s -> %s for node %q in run %q", e.From, e.To, e.NodeID, e.RunID)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// MissingSignatureError reports that a dependent node's input could not be
// assembled because a dependency never wrote its signature. Under correct
// scheduling this cannot happen; it is treated as fatal to the node's
// invocation attempt.
type MissingSignatureError struct {
	RunID  string
	NodeID string
}

// Error implements the error interface.
func (e *MissingSignatureError) Error() string {
	return fmt.Sprintf("no signature recorded for node %q in run %q", e.NodeID, e.RunID)
}

// InvocationError wraps a failure reported by the execution collaborator. It
// is recoverable at the node level: the node fails, its dependents are
// blocked, and sibling branches and other runs proceed untouched.
type InvocationError struct {
	NodeID string
	Err    error
}

// Error implements the error interface.
func (e *InvocationError) Error() string {
	return fmt.Sprintf("invocation of node %q failed: %v", e.NodeID, e.Err)
}

// Unwrap exposes the collaborator's underlying error.
func (e *InvocationError) Unwrap() error { return e.Err }

var (
	// ErrRunNotFound indicates an operation referenced an unknown run id.
	ErrRunNotFound = errors.New("run not found")
	// ErrNodeNotFound indicates an operation referenced a node id outside
	// the run's plan.
	ErrNodeNotFound = errors.New("node not found")
	// ErrRunTimeout marks nodes force-failed because the run exceeded its
	// configured timeout.
	ErrRunTimeout = errors.New("run timeout exceeded")
	// ErrBudgetExceeded marks nodes force-failed because the run exhausted
	// its token budget.
	ErrBudgetExceeded = errors.New("token budget exceeded")
	// ErrOutputNotFound indicates no output payload is stored for the
	// requested (run, node) key.
	ErrOutputNotFound = errors.New("output not found")
)

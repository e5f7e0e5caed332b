package core

// NodeStatus is the lifecycle state of a single node within a run.
//
// Transitions: Pending → Running → {Completed, Failed}. No transition leaves
// a terminal state. Blocked is assigned to nodes that can never become
// eligible because a transitive dependency failed; it is terminal and is
// reported in place of Pending once the run settles.
type NodeStatus string

const (
	// NodePending means the node has not started; it may still be waiting on
	// dependencies.
	NodePending NodeStatus = "pending"
	// NodeRunning means the node has been dispatched to the execution
	// collaborator and has not yet reported back.
	NodeRunning NodeStatus = "running"
	// NodeCompleted means the node finished successfully and its signature
	// (if any) has been recorded.
	NodeCompleted NodeStatus = "completed"
	// NodeFailed means the node's invocation reported an error, or the run
	// was force-failed (timeout, budget).
	NodeFailed NodeStatus = "failed"
	// NodeBlocked means a transitive dependency failed, so the node is
	// permanently ineligible.
	NodeBlocked NodeStatus = "blocked"
)

// Terminal reports whether the status admits no further transition.
func (s NodeStatus) Terminal() bool {
	switch s {
	case NodeCompleted, NodeFailed, NodeBlocked:
		return true
	default:
		return false
	}
}

// RunStatus is the aggregate lifecycle state of a run.
type RunStatus string

const (
	// RunIdle means the run exists but Start has not been called.
	RunIdle RunStatus = "idle"
	// RunRunning means at least one node is pending or running.
	RunRunning RunStatus = "running"
	// RunCompleted means every node completed.
	RunCompleted RunStatus = "completed"
	// RunFailed means at least one node failed or was blocked and no further
	// progress is possible.
	RunFailed RunStatus = "failed"
)

// Terminal reports whether the run has settled.
func (s RunStatus) Terminal() bool { return s == RunCompleted || s == RunFailed }

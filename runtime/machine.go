package runtime

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/agentgrid/core"
)

// nodeState is the mutable per-node record; guarded by the owning run's lock.
type nodeState struct {
	status  core.NodeStatus
	errMsg  string
	tokens  int
	blocked bool // permanently ineligible because a transitive dependency failed
}

// runState is the mutable per-run record. All fields are guarded by mu.
type runState struct {
	mu          sync.Mutex
	id          string
	plan        *core.ExecutionPlan
	status      core.RunStatus
	nodes       map[string]*nodeState
	totalTokens int
	startedAt   *time.Time
	endedAt     *time.Time
}

// Machine tracks the lifecycle of every run and of each node within it. It
// is the sole owner of runtime state mutation; see the package comment for
// the locking model.
type Machine struct {
	mu   sync.RWMutex
	runs map[string]*runState
}

// NewMachine constructs an empty state machine.
func NewMachine() *Machine {
	return &Machine{runs: make(map[string]*runState)}
}

// CreateRun instantiates runtime state for a validated plan: status Idle,
// every node Pending. It returns the generated run id.
func (m *Machine) CreateRun(plan *core.ExecutionPlan) string {
	runID := uuid.NewString()

	nodes := make(map[string]*nodeState, plan.Len())
	for _, id := range plan.Order() {
		nodes[id] = &nodeState{status: core.NodePending}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[runID] = &runState{
		id:     runID,
		plan:   plan,
		status: core.RunIdle,
		nodes:  nodes,
	}
	return runID
}

// run resolves a run id or reports core.ErrRunNotFound.
func (m *Machine) run(runID string) (*runState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[runID]
	if !ok {
		return nil, fmt.Errorf("run %q: %w", runID, core.ErrRunNotFound)
	}
	return r, nil
}

// Start moves a run from Idle to Running.
func (m *Machine) Start(runID string) error {
	r, err := m.run(runID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != core.RunIdle {
		return fmt.Errorf("run %q already started (status %s)", runID, r.status)
	}
	now := time.Now().UTC()
	r.startedAt = &now
	r.status = core.RunRunning
	return nil
}

// EligibleNodes returns, in plan order, every node whose status is Pending,
// that is not blocked, and whose every direct dependency is Completed.
// Calling it repeatedly without intervening transitions returns the same set.
func (m *Machine) EligibleNodes(runID string) ([]string, error) {
	r, err := m.run(runID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.eligibleLocked(), nil
}

func (r *runState) eligibleLocked() []string {
	if r.status != core.RunRunning {
		return nil
	}
	var eligible []string
	for _, id := range r.plan.Order() {
		n := r.nodes[id]
		if n.status != core.NodePending || n.blocked {
			continue
		}
		ready := true
		for _, dep := range r.plan.Dependencies(id) {
			if r.nodes[dep].status != core.NodeCompleted {
				ready = false
				break
			}
		}
		if ready {
			eligible = append(eligible, id)
		}
	}
	return eligible
}

// BeginNode atomically transitions a node from Pending to Running. The check
// and the set happen under the run lock, so two callers can never both
// succeed for the same node.
func (m *Machine) BeginNode(runID, nodeID string) error {
	r, err := m.run(runID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[nodeID]
	if !ok {
		return fmt.Errorf("node %q in run %q: %w", nodeID, runID, core.ErrNodeNotFound)
	}
	if n.status != core.NodePending {
		return &core.InvalidTransitionError{RunID: runID, NodeID: nodeID, From: n.status, To: core.NodeRunning}
	}
	if n.blocked {
		return &core.InvalidTransitionError{
			RunID: runID, NodeID: nodeID, From: n.status, To: core.NodeRunning,
			Reason: "node is blocked by a failed dependency",
		}
	}
	for _, dep := range r.plan.Dependencies(nodeID) {
		if r.nodes[dep].status != core.NodeCompleted {
			return &core.InvalidTransitionError{
				RunID: runID, NodeID: nodeID, From: n.status, To: core.NodeRunning,
				Reason: fmt.Sprintf("dependency %q not completed", dep),
			}
		}
	}
	n.status = core.NodeRunning
	return nil
}

// CompleteNode transitions a node from Running to Completed and records its
// token usage.
func (m *Machine) CompleteNode(runID, nodeID string, tokensUsed int) error {
	r, err := m.run(runID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[nodeID]
	if !ok {
		return fmt.Errorf("node %q in run %q: %w", nodeID, runID, core.ErrNodeNotFound)
	}
	if n.status != core.NodeRunning {
		return &core.InvalidTransitionError{RunID: runID, NodeID: nodeID, From: n.status, To: core.NodeCompleted}
	}
	n.status = core.NodeCompleted
	n.tokens = tokensUsed
	r.totalTokens += tokensUsed
	r.settleLocked()
	return nil
}

// FailNode transitions a node from Running to Failed, records the error, and
// permanently blocks every transitive dependent. Sibling branches keep
// running.
func (m *Machine) FailNode(runID, nodeID string, nodeErr error) error {
	r, err := m.run(runID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[nodeID]
	if !ok {
		return fmt.Errorf("node %q in run %q: %w", nodeID, runID, core.ErrNodeNotFound)
	}
	if n.status != core.NodeRunning {
		return &core.InvalidTransitionError{RunID: runID, NodeID: nodeID, From: n.status, To: core.NodeFailed}
	}
	r.failLocked(nodeID, nodeErr)
	r.settleLocked()
	return nil
}

// ForceFail fails a node from Pending or Running regardless of eligibility.
// Used when the run itself gives up on the node (token budget exhausted)
// rather than the node's own invocation failing.
func (m *Machine) ForceFail(runID, nodeID string, reason error) error {
	r, err := m.run(runID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[nodeID]
	if !ok {
		return fmt.Errorf("node %q in run %q: %w", nodeID, runID, core.ErrNodeNotFound)
	}
	if n.status.Terminal() {
		return &core.InvalidTransitionError{RunID: runID, NodeID: nodeID, From: n.status, To: core.NodeFailed}
	}
	r.failLocked(nodeID, reason)
	r.settleLocked()
	return nil
}

// ExpireRun force-fails every non-terminal node with the given reason
// (typically core.ErrRunTimeout) and settles the run as Failed.
func (m *Machine) ExpireRun(runID string, reason error) error {
	r, err := m.run(runID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == core.RunIdle {
		r.status = core.RunRunning
	}
	for _, id := range r.plan.Order() {
		n := r.nodes[id]
		if n.status.Terminal() {
			continue
		}
		n.status = core.NodeFailed
		n.errMsg = reason.Error()
	}
	r.settleLocked()
	return nil
}

// failLocked flips a node to Failed and blocks its dependent subgraph.
// Caller holds the run lock.
func (r *runState) failLocked(nodeID string, nodeErr error) {
	n := r.nodes[nodeID]
	n.status = core.NodeFailed
	if nodeErr != nil {
		n.errMsg = nodeErr.Error()
	}
	for _, dep := range r.plan.TransitiveDependents(nodeID) {
		if !r.nodes[dep].status.Terminal() {
			r.nodes[dep].blocked = true
		}
	}
}

// settleLocked re-derives the aggregate run status after a transition.
//
// The run stays Running while any node is Running or any non-blocked Pending
// node can still become eligible. Once nothing can make progress, blocked
// Pending nodes are surfaced as Blocked and the run ends Failed if any node
// failed or was blocked, Completed otherwise.
func (r *runState) settleLocked() {
	if r.status != core.RunRunning {
		return
	}

	anyActive := false
	anyFailed := false
	for _, n := range r.nodes {
		switch n.status {
		case core.NodeRunning:
			anyActive = true
		case core.NodePending:
			if !n.blocked {
				anyActive = true
			}
		case core.NodeFailed:
			anyFailed = true
		}
	}
	if anyActive {
		return
	}

	anyBlocked := false
	for _, n := range r.nodes {
		if n.status == core.NodePending && n.blocked {
			n.status = core.NodeBlocked
			n.errMsg = "dependency failed"
			anyBlocked = true
		}
	}

	now := time.Now().UTC()
	r.endedAt = &now
	if anyFailed || anyBlocked {
		r.status = core.RunFailed
	} else {
		r.status = core.RunCompleted
	}
}

// Snapshot returns an immutable copy of the run's current state.
func (m *Machine) Snapshot(runID string) (Snapshot, error) {
	r, err := m.run(runID)
	if err != nil {
		return Snapshot{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	snap := Snapshot{
		RunID:       r.id,
		WorkflowID:  r.plan.WorkflowID(),
		Status:      r.status,
		Nodes:       make([]NodeSnapshot, 0, len(r.nodes)),
		TotalTokens: r.totalTokens,
	}
	if r.startedAt != nil {
		t := *r.startedAt
		snap.StartedAt = &t
	}
	if r.endedAt != nil {
		t := *r.endedAt
		snap.EndedAt = &t
	}
	for _, id := range r.plan.Order() {
		n := r.nodes[id]
		snap.Nodes = append(snap.Nodes, NodeSnapshot{
			ID:         id,
			Status:     n.status,
			Error:      n.errMsg,
			TokensUsed: n.tokens,
		})
	}
	return snap, nil
}

// Status returns the aggregate run status.
func (m *Machine) Status(runID string) (core.RunStatus, error) {
	r, err := m.run(runID)
	if err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status, nil
}

// Plan returns the immutable execution plan a run was created from.
func (m *Machine) Plan(runID string) (*core.ExecutionPlan, error) {
	r, err := m.run(runID)
	if err != nil {
		return nil, err
	}
	return r.plan, nil
}

// Discard removes a run's state entirely. Signatures and outputs are owned
// by their stores and must be purged by the caller.
func (m *Machine) Discard(runID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.runs, runID)
}

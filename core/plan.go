package core

// ExecutionPlan is the immutable artifact of a successfully validated
// WorkflowConfig: a deterministic topological order plus the adjacency needed
// for eligibility checks at runtime.
//
// A plan is created once per validated workflow and never mutated.
// Reconfiguration means building a new plan and starting a new run; in-place
// graph surgery is deliberately unsupported.
type ExecutionPlan struct {
	workflowID string
	order      []string
	nodes      map[string]AgentNode
	deps       map[string][]string
	dependents map[string][]string
}

// NewExecutionPlan assembles a plan from pre-validated parts. Callers outside
// the workflow validator should never need this; it exists so the validator
// package can construct plans without exporting the internals.
func NewExecutionPlan(
	workflowID string,
	order []string,
	nodes map[string]AgentNode,
	deps map[string][]string,
	dependents map[string][]string,
) *ExecutionPlan {
	return &ExecutionPlan{
		workflowID: workflowID,
		order:      order,
		nodes:      nodes,
		deps:       deps,
		dependents: dependents,
	}
}

// WorkflowID returns the id of the workflow this plan was derived from.
func (p *ExecutionPlan) WorkflowID() string { return p.workflowID }

// Order returns a copy of the topologically ordered node ids. Every node
// appears after all of its dependencies; ties are broken by declaration order
// in the source WorkflowConfig.
func (p *ExecutionPlan) Order() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Len returns the number of nodes in the plan.
func (p *ExecutionPlan) Len() int { return len(p.order) }

// Node returns the declared configuration for a node id.
func (p *ExecutionPlan) Node(id string) (AgentNode, bool) {
	n, ok := p.nodes[id]
	return n, ok
}

// Dependencies returns a copy of the direct dependency ids of a node.
func (p *ExecutionPlan) Dependencies(id string) []string {
	deps := p.deps[id]
	out := make([]string, len(deps))
	copy(out, deps)
	return out
}

// Dependents returns a copy of the direct dependent ids of a node.
func (p *ExecutionPlan) Dependents(id string) []string {
	deps := p.dependents[id]
	out := make([]string, len(deps))
	copy(out, deps)
	return out
}

// TransitiveDependents returns every node reachable from id along dependency
// edges, in plan order. Used to block the dependent subgraph when a node
// fails.
func (p *ExecutionPlan) TransitiveDependents(id string) []string {
	reached := map[string]bool{}
	stack := append([]string(nil), p.dependents[id]...)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reached[cur] {
			continue
		}
		reached[cur] = true
		stack = append(stack, p.dependents[cur]...)
	}
	out := make([]string, 0, len(reached))
	for _, nodeID := range p.order {
		if reached[nodeID] {
			out = append(out, nodeID)
		}
	}
	return out
}

package workflow

import (
	"github.com/hupe1980/agentgrid/core"
)

// Traversal colors for cycle detection.
const (
	unvisited = iota
	inProgress
	done
)

// Validate checks a WorkflowConfig and derives its ExecutionPlan.
//
// It rejects:
//   - empty workflows and duplicate node ids
//   - dependencies naming nodes outside the workflow (GraphUnknownDependency)
//   - dependency cycles (GraphCycleDetected, naming one node on the cycle)
//
// On success it returns a deterministic topological order: whenever several
// nodes have all dependencies resolved, they are emitted in declaration
// order. Identical input therefore always yields an identical plan, which
// keeps scheduling reproducible.
func Validate(cfg core.WorkflowConfig) (*core.ExecutionPlan, error) {
	if len(cfg.Agents) == 0 {
		return nil, &core.GraphError{Kind: core.GraphEmptyWorkflow}
	}

	nodes := make(map[string]core.AgentNode, len(cfg.Agents))
	declared := make([]string, 0, len(cfg.Agents))
	for _, a := range cfg.Agents {
		if _, dup := nodes[a.ID]; dup {
			return nil, &core.GraphError{Kind: core.GraphDuplicateNode, NodeID: a.ID}
		}
		nodes[a.ID] = a
		declared = append(declared, a.ID)
	}

	deps := make(map[string][]string, len(cfg.Agents))
	dependents := make(map[string][]string, len(cfg.Agents))
	for _, a := range cfg.Agents {
		for _, dep := range a.DependsOn {
			if _, ok := nodes[dep]; !ok {
				return nil, &core.GraphError{
					Kind:       core.GraphUnknownDependency,
					NodeID:     a.ID,
					Dependency: dep,
				}
			}
			deps[a.ID] = append(deps[a.ID], dep)
			dependents[dep] = append(dependents[dep], a.ID)
		}
	}

	if onCycle, found := findCycle(declared, deps); found {
		return nil, &core.GraphError{Kind: core.GraphCycleDetected, NodeID: onCycle}
	}

	order := topologicalOrder(declared, deps, dependents)

	return core.NewExecutionPlan(cfg.ID, order, nodes, deps, dependents), nil
}

// findCycle runs a three-color DFS over the dependency edges. Encountering an
// in-progress node again proves a cycle; that node is returned as the
// witness. Traversal follows declaration order so the witness is stable for
// identical input.
func findCycle(declared []string, deps map[string][]string) (string, bool) {
	color := make(map[string]int, len(declared))

	var visit func(id string) (string, bool)
	visit = func(id string) (string, bool) {
		color[id] = inProgress
		for _, dep := range deps[id] {
			switch color[dep] {
			case inProgress:
				return dep, true
			case unvisited:
				if witness, found := visit(dep); found {
					return witness, true
				}
			}
		}
		color[id] = done
		return "", false
	}

	for _, id := range declared {
		if color[id] != unvisited {
			continue
		}
		if witness, found := visit(id); found {
			return witness, true
		}
	}
	return "", false
}

// topologicalOrder is Kahn's algorithm with a declaration-ordered ready list.
// Assumes the graph is already proven acyclic.
func topologicalOrder(declared []string, deps, dependents map[string][]string) []string {
	indegree := make(map[string]int, len(declared))
	for id, d := range deps {
		indegree[id] = len(d)
	}

	declIndex := make(map[string]int, len(declared))
	for i, id := range declared {
		declIndex[id] = i
	}

	// The ready list is kept sorted by declaration index; with small fan-out
	// an insertion scan beats a heap and stays obviously correct.
	var ready []string
	insert := func(id string) {
		pos := len(ready)
		for i, r := range ready {
			if declIndex[id] < declIndex[r] {
				pos = i
				break
			}
		}
		ready = append(ready, "")
		copy(ready[pos+1:], ready[pos:])
		ready[pos] = id
	}

	for _, id := range declared {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	order := make([]string, 0, len(declared))
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		for _, dependent := range dependents[next] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				insert(dependent)
			}
		}
	}
	return order
}

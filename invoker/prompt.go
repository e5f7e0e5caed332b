package invoker

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hupe1980/agentgrid/core"
	"github.com/hupe1980/agentgrid/internal/util"
)

// SystemPrompt renders a node's role into a short system instruction shared
// by all provider adapters.
func SystemPrompt(node core.AgentNode) string {
	switch node.Role {
	case core.RoleOrchestrator:
		return "You coordinate the work of other agents. Synthesize their results into a coherent whole."
	case core.RoleObserver:
		return "You review the work of other agents. Report issues without modifying results."
	default:
		return "You are a worker agent. Complete the task precisely and return only the result."
	}
}

// UserPrompt assembles the node's prompt with the outputs of its completed
// dependencies, in deterministic id order. The prompt may reference template
// variables: .run_id, .workflow_id, .node_id, and .inputs (dependency id to
// output text).
func UserPrompt(req Request) (string, error) {
	inputs := make(map[string]string, len(req.Inputs))
	ids := make([]string, 0, len(req.Inputs))
	for id, out := range req.Inputs {
		inputs[id] = string(out)
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rendered, err := util.RenderPrompt(req.Node.Prompt, map[string]any{
		"run_id":      req.RunID,
		"workflow_id": req.WorkflowID,
		"node_id":     req.Node.ID,
		"inputs":      inputs,
	})
	if err != nil {
		return "", fmt.Errorf("prompt template for node %q: %w", req.Node.ID, err)
	}

	var b strings.Builder
	b.WriteString(rendered)

	if len(ids) > 0 {
		b.WriteString("\n\nResults from upstream agents:\n")
		for _, id := range ids {
			fmt.Fprintf(&b, "\n[%s]\n%s\n", id, inputs[id])
		}
	}
	return b.String(), nil
}

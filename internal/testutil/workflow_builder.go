package testutil

import (
	"github.com/hupe1980/agentgrid/core"
)

// WorkflowBuilder helps construct workflow configurations with fluent
// chaining for tests. Example:
//
//	cfg := NewWorkflowBuilder("wf-1").
//		Worker("a").
//		Worker("b", "a").
//		Budget(1000).
//		Build()
type WorkflowBuilder struct {
	cfg core.WorkflowConfig
}

// NewWorkflowBuilder creates a builder for a workflow with the given id.
// Use chainable methods (Node, Worker, Orchestrator, Budget, Timeout) then
// call Build.
func NewWorkflowBuilder(id string) *WorkflowBuilder {
	return &WorkflowBuilder{cfg: core.WorkflowConfig{ID: id, Name: id}}
}

// Node appends a fully specified agent node (chainable).
func (b *WorkflowBuilder) Node(node core.AgentNode) *WorkflowBuilder {
	b.cfg.Agents = append(b.cfg.Agents, node)
	return b
}

// Worker appends a worker node on the flash tier with the given dependencies
// (chainable).
func (b *WorkflowBuilder) Worker(id string, deps ...string) *WorkflowBuilder {
	return b.Node(core.AgentNode{
		ID:        id,
		Role:      core.RoleWorker,
		Model:     core.VariantFlash,
		DependsOn: deps,
		Prompt:    "task " + id,
	})
}

// Orchestrator appends an orchestrator node on the deep-think tier with the
// given dependencies (chainable).
func (b *WorkflowBuilder) Orchestrator(id string, deps ...string) *WorkflowBuilder {
	return b.Node(core.AgentNode{
		ID:        id,
		Role:      core.RoleOrchestrator,
		Model:     core.VariantDeepThink,
		DependsOn: deps,
		Prompt:    "coordinate " + id,
	})
}

// Budget caps the run's total token usage (chainable).
func (b *WorkflowBuilder) Budget(maxTokens int) *WorkflowBuilder {
	b.cfg.MaxTokenBudget = maxTokens
	return b
}

// Timeout bounds the run's wall-clock duration in milliseconds (chainable).
func (b *WorkflowBuilder) Timeout(ms int64) *WorkflowBuilder {
	b.cfg.TimeoutMS = ms
	return b
}

// Build returns the assembled workflow configuration.
func (b *WorkflowBuilder) Build() core.WorkflowConfig {
	return b.cfg
}

package core

import (
	"encoding/json"
	"fmt"
)

// Role classifies an agent node within a workflow. It affects scheduling
// semantics and prompt framing but never graph shape. The set is closed;
// unknown roles are rejected during decoding.
type Role int

const (
	// RoleOrchestrator marks a node that coordinates and delegates work.
	RoleOrchestrator Role = iota
	// RoleWorker marks a node that performs a concrete task.
	RoleWorker
	// RoleObserver marks a node that inspects results without producing work.
	RoleObserver
)

// String returns the wire representation of the role.
func (r Role) String() string {
	switch r {
	case RoleOrchestrator:
		return "orchestrator"
	case RoleWorker:
		return "worker"
	case RoleObserver:
		return "observer"
	default:
		return "unknown"
	}
}

// ParseRole converts a wire string into a Role.
func ParseRole(s string) (Role, error) {
	switch s {
	case "orchestrator":
		return RoleOrchestrator, nil
	case "worker":
		return RoleWorker, nil
	case "observer":
		return RoleObserver, nil
	default:
		return 0, fmt.Errorf("unknown agent role %q", s)
	}
}

// MarshalJSON implements json.Marshaler.
func (r Role) MarshalJSON() ([]byte, error) { return json.Marshal(r.String()) }

// UnmarshalJSON implements json.Unmarshaler rejecting unknown roles.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (r Role) MarshalYAML() (any, error) { return r.String(), nil }

// UnmarshalYAML implements yaml.Unmarshaler rejecting unknown roles.
func (r *Role) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ModelVariant selects the execution backend tier for a node. Like Role it is
// a closed set so scheduling logic can switch exhaustively instead of matching
// provider-specific model id strings.
type ModelVariant int

const (
	// VariantFlash selects the cheap, low-latency tier.
	VariantFlash ModelVariant = iota
	// VariantPro selects the standard reasoning tier.
	VariantPro
	// VariantDeepThink selects the extended-thinking tier. Nodes on this tier
	// are the primary producers of thought signatures.
	VariantDeepThink
)

// String returns the wire representation of the variant.
func (v ModelVariant) String() string {
	switch v {
	case VariantFlash:
		return "flash"
	case VariantPro:
		return "pro"
	case VariantDeepThink:
		return "deepthink"
	default:
		return "unknown"
	}
}

// ParseModelVariant converts a wire string into a ModelVariant.
func ParseModelVariant(s string) (ModelVariant, error) {
	switch s {
	case "flash":
		return VariantFlash, nil
	case "pro":
		return VariantPro, nil
	case "deepthink":
		return VariantDeepThink, nil
	default:
		return 0, fmt.Errorf("unknown model variant %q", s)
	}
}

// MarshalJSON implements json.Marshaler.
func (v ModelVariant) MarshalJSON() ([]byte, error) { return json.Marshal(v.String()) }

// UnmarshalJSON implements json.Unmarshaler rejecting unknown variants.
func (v *ModelVariant) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseModelVariant(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (v ModelVariant) MarshalYAML() (any, error) { return v.String(), nil }

// UnmarshalYAML implements yaml.Unmarshaler rejecting unknown variants.
func (v *ModelVariant) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseModelVariant(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// AgentNode declares a single unit of work inside a workflow. Edges point
// from each id in DependsOn to this node.
//
// Invariants (enforced by workflow.Validate, not here):
//   - ID is unique within one workflow
//   - every DependsOn id names a node in the same workflow
type AgentNode struct {
	// ID uniquely identifies the node within its workflow.
	ID string `json:"id" yaml:"id"`
	// Role classifies the node (orchestrator, worker, observer).
	Role Role `json:"role" yaml:"role"`
	// Model selects the execution backend tier.
	Model ModelVariant `json:"model" yaml:"model"`
	// DependsOn lists the ids of nodes whose completion gates this node.
	DependsOn []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	// Prompt is the payload template handed to the execution collaborator.
	Prompt string `json:"prompt" yaml:"prompt"`
	// Tools names the tools the node may use. The kernel treats these as
	// opaque strings; interpretation belongs to the invocation layer.
	Tools []string `json:"tools,omitempty" yaml:"tools,omitempty"`
}

// WorkflowConfig is the declarative description of a workflow: an ordered
// list of agent nodes plus global run limits. Node declaration order is
// significant: it breaks topological-order ties deterministically.
type WorkflowConfig struct {
	// ID identifies the workflow definition (not the run).
	ID string `json:"id" yaml:"id"`
	// Name is a human-readable label.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	// Agents lists the nodes in declaration order.
	Agents []AgentNode `json:"agents" yaml:"agents"`
	// MaxTokenBudget caps total token usage across the run. Zero means
	// unlimited.
	MaxTokenBudget int `json:"max_token_budget,omitempty" yaml:"max_token_budget,omitempty"`
	// TimeoutMS bounds wall-clock duration of a run in milliseconds. Zero
	// means no timeout.
	TimeoutMS int64 `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
}

// Node returns the node with the given id, if declared.
func (c *WorkflowConfig) Node(id string) (AgentNode, bool) {
	for _, a := range c.Agents {
		if a.ID == id {
			return a, true
		}
	}
	return AgentNode{}, false
}

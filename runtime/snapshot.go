package runtime

import (
	"time"

	"github.com/hupe1980/agentgrid/core"
)

// NodeSnapshot is the observable state of one node at snapshot time.
type NodeSnapshot struct {
	ID         string          `json:"id"`
	Status     core.NodeStatus `json:"status"`
	Error      string          `json:"error,omitempty"`
	TokensUsed int             `json:"tokens_used,omitempty"`
}

// Snapshot is a point-in-time, immutable copy of a run's state. Nodes are
// listed in plan order so identical runs serialize identically.
type Snapshot struct {
	RunID       string          `json:"run_id"`
	WorkflowID  string          `json:"workflow_id"`
	Status      core.RunStatus  `json:"status"`
	Nodes       []NodeSnapshot  `json:"nodes"`
	TotalTokens int             `json:"total_tokens"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	EndedAt     *time.Time      `json:"ended_at,omitempty"`
}

// Node returns the snapshot entry for a node id.
func (s Snapshot) Node(id string) (NodeSnapshot, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeSnapshot{}, false
}

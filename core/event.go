package core

import (
	"time"

	"github.com/google/uuid"
)

// EventType categorizes runtime events emitted by the orchestration loop.
type EventType string

const (
	// EventRunStarted fires when a run transitions out of Idle.
	EventRunStarted EventType = "run_started"
	// EventNodeStarted fires when a node transitions to Running.
	EventNodeStarted EventType = "node_started"
	// EventNodeCompleted fires when a node completes and its signature has
	// been recorded.
	EventNodeCompleted EventType = "node_completed"
	// EventNodeFailed fires when a node's invocation fails.
	EventNodeFailed EventType = "node_failed"
	// EventRunCompleted fires when every node in the run completed.
	EventRunCompleted EventType = "run_completed"
	// EventRunFailed fires when the run settles with failed or blocked nodes.
	EventRunFailed EventType = "run_failed"
)

// RuntimeEvent is an immutable record of an orchestration state change.
// Events exist for observation (consoles, pattern matchers, tests); the
// kernel never reads them back to drive scheduling decisions.
type RuntimeEvent struct {
	ID        string         `json:"id"`
	RunID     string         `json:"run_id"`
	Type      EventType      `json:"type"`
	NodeID    string         `json:"node_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Detail    map[string]any `json:"detail,omitempty"`
}

// NewRuntimeEvent creates an event bound to a run with a fresh id and UTC
// timestamp. nodeID may be empty for run-level events.
func NewRuntimeEvent(runID string, eventType EventType, nodeID string, detail map[string]any) RuntimeEvent {
	return RuntimeEvent{
		ID:        uuid.NewString(),
		RunID:     runID,
		Type:      eventType,
		NodeID:    nodeID,
		Timestamp: time.Now().UTC(),
		Detail:    detail,
	}
}

// Package engine implements the orchestration loop that drives workflow runs.
//
// The Engine validates a workflow into an execution plan, creates a run on the
// runtime state machine, and then repeats a single cycle until the run
// settles: query eligible nodes, dispatch each in its own goroutine (bounded
// by MaxConcurrentInvocations), and on completion persist the node's output
// and thought signature before re-querying eligibility. A node failure blocks
// only its dependent subgraph; independent branches keep running.
//
// Two run-level guards sit above the per-node lifecycle: a wall-clock timeout
// (WorkflowConfig.TimeoutMS) that force-fails everything still live, and a
// token budget (WorkflowConfig.MaxTokenBudget) that force-fails nodes not yet
// dispatched once recorded usage crosses the limit.
//
// Run progress is observable through the Bus, which broadcasts RuntimeEvents
// to subscribers without ever blocking the loop.
package engine

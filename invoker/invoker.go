package invoker

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hupe1980/agentgrid/core"
)

// Request captures the normalized input for one node invocation: the node
// itself plus the outputs and thought signatures of its completed
// dependencies, keyed by dependency node id.
type Request struct {
	RunID      string            `json:"run_id"`
	WorkflowID string            `json:"workflow_id"`
	Node       core.AgentNode    `json:"node"`
	Inputs     map[string][]byte `json:"inputs,omitempty"`
	Signatures map[string]string `json:"signatures,omitempty"`
}

// Result is the outcome of a successful invocation. Signature is the opaque
// provider continuity token for this node's reasoning; it may be empty when
// the provider emits none.
type Result struct {
	Output     []byte `json:"output"`
	Signature  string `json:"signature,omitempty"`
	TokensUsed int    `json:"tokens_used"`
}

// Info contains metadata about an invoker implementation.
type Info struct {
	Provider string `json:"provider"` // "anthropic", "openai", "mock", etc.
}

// Invoker is the minimal interface the engine requires to run a node.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (*Result, error)

	// Info returns information about the invoker implementation.
	Info() Info
}

// canned is a deterministic scripted outcome for one node id.
type canned struct {
	output    string
	signature string
	tokens    int
	err       error
}

// MockInvoker is a lightweight in-memory Invoker useful for tests & examples.
// Outcomes are scripted per node id; unscripted nodes succeed with a
// synthesized output and signature. Every request is recorded so tests can
// assert which dependency signatures a node observed.
type MockInvoker struct {
	mu       sync.Mutex
	scripted map[string]canned
	requests []Request
}

// NewMockInvoker constructs an empty MockInvoker.
func NewMockInvoker() *MockInvoker {
	return &MockInvoker{scripted: make(map[string]canned)}
}

// AddResult registers a deterministic outcome for a node id.
func (m *MockInvoker) AddResult(nodeID, output, signature string, tokens int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripted[nodeID] = canned{output: output, signature: signature, tokens: tokens}
}

// AddError makes every invocation of the node id fail with err.
func (m *MockInvoker) AddError(nodeID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripted[nodeID] = canned{err: err}
}

// Requests returns a copy of all recorded requests in invocation order.
func (m *MockInvoker) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// RequestFor returns the recorded request for a node id, if any.
func (m *MockInvoker) RequestFor(nodeID string) (Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.requests {
		if r.Node.ID == nodeID {
			return r, true
		}
	}
	return Request{}, false
}

// Invoke implements Invoker; honors context cancellation before resolving.
func (m *MockInvoker) Invoke(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.requests = append(m.requests, req)
	c, ok := m.scripted[req.Node.ID]
	m.mu.Unlock()

	if ok {
		if c.err != nil {
			return nil, &core.InvocationError{NodeID: req.Node.ID, Err: c.err}
		}
		return &Result{Output: []byte(c.output), Signature: c.signature, TokensUsed: c.tokens}, nil
	}

	// Synthesized fallback echoes the prompt and observed dependencies so
	// downstream assertions stay meaningful.
	deps := make([]string, 0, len(req.Inputs))
	for id := range req.Inputs {
		deps = append(deps, id)
	}
	sort.Strings(deps)
	output := fmt.Sprintf("mock output for %s (deps: %s)", req.Node.ID, strings.Join(deps, ","))
	return &Result{
		Output:     []byte(output),
		Signature:  "sig-" + req.Node.ID,
		TokensUsed: 10,
	}, nil
}

// Info implements Invoker.
func (m *MockInvoker) Info() Info { return Info{Provider: "mock"} }

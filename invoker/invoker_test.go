package invoker

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/agentgrid/core"
)

// Interface compliance (compile-time assertion)
var _ Invoker = (*MockInvoker)(nil)

func TestMockInvoker_ScriptedResult(t *testing.T) {
	m := NewMockInvoker()
	m.AddResult("a", "hello", "sig-abc", 42)

	res, err := m.Invoke(context.Background(), Request{Node: core.AgentNode{ID: "a"}})
	if err != nil {
		t.Fatalf("invoke failed: %v", err)
	}
	if string(res.Output) != "hello" {
		t.Errorf("expected output %q, got %q", "hello", res.Output)
	}
	if res.Signature != "sig-abc" {
		t.Errorf("expected signature %q, got %q", "sig-abc", res.Signature)
	}
	if res.TokensUsed != 42 {
		t.Errorf("expected 42 tokens, got %d", res.TokensUsed)
	}
}

func TestMockInvoker_ScriptedError(t *testing.T) {
	m := NewMockInvoker()
	m.AddError("a", errors.New("provider down"))

	_, err := m.Invoke(context.Background(), Request{Node: core.AgentNode{ID: "a"}})
	var invErr *core.InvocationError
	if !errors.As(err, &invErr) {
		t.Fatalf("expected *core.InvocationError, got %v", err)
	}
	if invErr.NodeID != "a" {
		t.Errorf("expected node id %q, got %q", "a", invErr.NodeID)
	}
}

func TestMockInvoker_RecordsRequests(t *testing.T) {
	m := NewMockInvoker()

	_, err := m.Invoke(context.Background(), Request{
		RunID: "run-1",
		Node:  core.AgentNode{ID: "b", DependsOn: []string{"a"}},
		Signatures: map[string]string{
			"a": "sig-a",
		},
	})
	if err != nil {
		t.Fatalf("invoke failed: %v", err)
	}

	req, ok := m.RequestFor("b")
	if !ok {
		t.Fatal("request for node b not recorded")
	}
	if req.Signatures["a"] != "sig-a" {
		t.Errorf("expected dependency signature to be observable, got %v", req.Signatures)
	}
}

func TestMockInvoker_ContextCancelled(t *testing.T) {
	m := NewMockInvoker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := m.Invoke(ctx, Request{Node: core.AgentNode{ID: "a"}}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentgrid/core"
	"github.com/hupe1980/agentgrid/internal/testutil"
	"github.com/hupe1980/agentgrid/invoker"
	"github.com/hupe1980/agentgrid/runtime"
)

func workerNode(id string, deps ...string) core.AgentNode {
	return core.AgentNode{ID: id, Role: core.RoleWorker, Model: core.VariantFlash, DependsOn: deps, Prompt: "task " + id}
}

func workflowCfg(id string, agents ...core.AgentNode) core.WorkflowConfig {
	return core.WorkflowConfig{ID: id, Name: id, Agents: agents}
}

// slowInvoker delays selected nodes so tests can force completion orderings.
type slowInvoker struct {
	*invoker.MockInvoker
	delays map[string]time.Duration
}

func (s *slowInvoker) Invoke(ctx context.Context, req invoker.Request) (*invoker.Result, error) {
	if d := s.delays[req.Node.ID]; d > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d):
		}
	}
	return s.MockInvoker.Invoke(ctx, req)
}

func waitSettled(t *testing.T, e *Engine, runID string) runtime.Snapshot {
	t.Helper()
	var snap runtime.Snapshot
	require.Eventually(t, func() bool {
		var err error
		snap, err = e.State(runID)
		return err == nil && snap.Status.Terminal()
	}, 5*time.Second, 5*time.Millisecond, "run %s did not settle", runID)
	return snap
}

func TestEngine_RejectsInvalidGraph(t *testing.T) {
	e := New()

	_, err := e.StartWorkflow(context.Background(), workflowCfg("wf",
		workerNode("a", "b"),
		workerNode("b", "a"),
	))
	var gerr *core.GraphError
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, core.GraphCycleDetected, gerr.Kind)

	_, err = e.StartWorkflow(context.Background(), workflowCfg("wf",
		workerNode("a", "ghost"),
	))
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, core.GraphUnknownDependency, gerr.Kind)
}

func TestEngine_LinearChainSignatureHandOff(t *testing.T) {
	mock := invoker.NewMockInvoker()
	mock.AddResult("a", "out-a", "sig-a", 10)
	mock.AddResult("b", "out-b", "sig-b", 10)
	mock.AddResult("c", "out-c", "sig-c", 10)
	e := New(WithInvoker(mock))

	runID, err := e.StartWorkflow(context.Background(), workflowCfg("chain",
		workerNode("a"),
		workerNode("b", "a"),
		workerNode("c", "b"),
	))
	require.NoError(t, err)

	snap := waitSettled(t, e, runID)
	assert.Equal(t, core.RunCompleted, snap.Status)
	assert.Equal(t, 30, snap.TotalTokens)

	// Each dependent observed exactly its dependency's signature.
	reqB, ok := mock.RequestFor("b")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"a": "sig-a"}, reqB.Signatures)
	assert.Equal(t, "out-a", string(reqB.Inputs["a"]))

	reqC, ok := mock.RequestFor("c")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"b": "sig-b"}, reqC.Signatures)

	sigs, err := e.Signatures(runID)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "sig-a", "b": "sig-b", "c": "sig-c"}, sigs)
}

func TestEngine_TwoNodeChain(t *testing.T) {
	mock := invoker.NewMockInvoker()
	mock.AddResult("A", "alpha", "sig-A", 7)
	mock.AddResult("B", "beta", "sig-B", 3)
	e := New(WithInvoker(mock))

	runID, err := e.StartWorkflow(context.Background(), workflowCfg("pair",
		workerNode("A"),
		workerNode("B", "A"),
	))
	require.NoError(t, err)

	snap := waitSettled(t, e, runID)
	assert.Equal(t, core.RunCompleted, snap.Status)

	reqB, ok := mock.RequestFor("B")
	require.True(t, ok)
	assert.Equal(t, "sig-A", reqB.Signatures["A"])

	a, _ := snap.Node("A")
	assert.Equal(t, core.NodeCompleted, a.Status)
	assert.Equal(t, 7, a.TokensUsed)
}

func TestEngine_DiamondOrderIndependence(t *testing.T) {
	run := func(delays map[string]time.Duration) runtime.Snapshot {
		mock := invoker.NewMockInvoker()
		for _, id := range []string{"a", "b", "c", "d"} {
			mock.AddResult(id, "out-"+id, "sig-"+id, 5)
		}
		e := New(WithInvoker(&slowInvoker{MockInvoker: mock, delays: delays}))

		runID, err := e.StartWorkflow(context.Background(), workflowCfg("diamond",
			workerNode("a"),
			workerNode("b", "a"),
			workerNode("c", "a"),
			workerNode("d", "b", "c"),
		))
		require.NoError(t, err)
		return waitSettled(t, e, runID)
	}

	// b finishes before c, then the other way around.
	first := run(map[string]time.Duration{"c": 30 * time.Millisecond})
	second := run(map[string]time.Duration{"b": 30 * time.Millisecond})

	assert.Equal(t, core.RunCompleted, first.Status)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.Nodes, second.Nodes)
	assert.Equal(t, first.TotalTokens, second.TotalTokens)
}

func TestEngine_FailureIsolatedToDependentSubgraph(t *testing.T) {
	mock := invoker.NewMockInvoker()
	mock.AddError("b", errors.New("provider exploded"))
	e := New(WithInvoker(mock))

	// b -> d; e is independent of b and must still complete.
	runID, err := e.StartWorkflow(context.Background(), workflowCfg("partial",
		workerNode("a"),
		workerNode("b", "a"),
		workerNode("d", "b"),
		workerNode("e", "a"),
	))
	require.NoError(t, err)

	snap := waitSettled(t, e, runID)
	assert.Equal(t, core.RunFailed, snap.Status)

	b, _ := snap.Node("b")
	assert.Equal(t, core.NodeFailed, b.Status)
	assert.Contains(t, b.Error, "provider exploded")

	d, _ := snap.Node("d")
	assert.Equal(t, core.NodeBlocked, d.Status)

	ind, _ := snap.Node("e")
	assert.Equal(t, core.NodeCompleted, ind.Status)

	// d was never invoked.
	_, invoked := mock.RequestFor("d")
	assert.False(t, invoked)
}

func TestEngine_TokenBudgetExhaustion(t *testing.T) {
	mock := invoker.NewMockInvoker()
	mock.AddResult("a", "out-a", "sig-a", 100)
	mock.AddResult("b", "out-b", "sig-b", 100)
	e := New(WithInvoker(mock))

	cfg := testutil.NewWorkflowBuilder("budget").
		Worker("a").
		Worker("b", "a").
		Budget(50).
		Build()

	runID, err := e.StartWorkflow(context.Background(), cfg)
	require.NoError(t, err)

	snap := waitSettled(t, e, runID)
	assert.Equal(t, core.RunFailed, snap.Status)

	a, _ := snap.Node("a")
	assert.Equal(t, core.NodeCompleted, a.Status)

	b, _ := snap.Node("b")
	assert.Equal(t, core.NodeFailed, b.Status)
	assert.Equal(t, core.ErrBudgetExceeded.Error(), b.Error)

	_, invoked := mock.RequestFor("b")
	assert.False(t, invoked)
}

func TestEngine_RunTimeout(t *testing.T) {
	mock := invoker.NewMockInvoker()
	slow := &slowInvoker{MockInvoker: mock, delays: map[string]time.Duration{"a": time.Second}}
	e := New(WithInvoker(slow))

	cfg := testutil.NewWorkflowBuilder("timeout").
		Worker("a").
		Worker("b", "a").
		Timeout(50).
		Build()

	runID, err := e.StartWorkflow(context.Background(), cfg)
	require.NoError(t, err)

	snap := waitSettled(t, e, runID)
	assert.Equal(t, core.RunFailed, snap.Status)
	for _, n := range snap.Nodes {
		assert.Equal(t, core.NodeFailed, n.Status)
		assert.Equal(t, core.ErrRunTimeout.Error(), n.Error)
	}
}

func TestEngine_ManualInvocation(t *testing.T) {
	mock := invoker.NewMockInvoker()
	mock.AddResult("a", "out-a", "sig-a", 5)
	mock.AddResult("b", "out-b", "sig-b", 5)
	e := New(WithInvoker(mock))

	runID, err := e.CreateRun(workflowCfg("manual", workerNode("a"), workerNode("b", "a")))
	require.NoError(t, err)

	// b cannot go first.
	_, err = e.InvokeNode(context.Background(), runID, "b")
	var inv *core.InvalidTransitionError
	require.True(t, errors.As(err, &inv))

	res, err := e.InvokeNode(context.Background(), runID, "a")
	require.NoError(t, err)
	assert.Equal(t, "sig-a", res.Signature)

	// Re-invoking a completed node is rejected.
	_, err = e.InvokeNode(context.Background(), runID, "a")
	require.True(t, errors.As(err, &inv))

	_, err = e.InvokeNode(context.Background(), runID, "b")
	require.NoError(t, err)

	snap, err := e.State(runID)
	require.NoError(t, err)
	assert.Equal(t, core.RunCompleted, snap.Status)

	reqB, _ := mock.RequestFor("b")
	assert.Equal(t, "sig-a", reqB.Signatures["a"])
}

func TestEngine_EventStream(t *testing.T) {
	mock := invoker.NewMockInvoker()
	mock.AddResult("a", "out-a", "sig-a", 5)
	e := New(WithInvoker(mock))

	events, unsubscribe := e.Subscribe()
	defer unsubscribe()

	runID, err := e.StartWorkflow(context.Background(), workflowCfg("events", workerNode("a")))
	require.NoError(t, err)
	waitSettled(t, e, runID)

	seen := map[core.EventType]bool{}
	deadline := time.After(2 * time.Second)
	for !seen[core.EventRunCompleted] {
		select {
		case ev := <-events:
			assert.Equal(t, runID, ev.RunID)
			seen[ev.Type] = true
		case <-deadline:
			t.Fatalf("run_completed event not observed, saw %v", seen)
		}
	}
	assert.True(t, seen[core.EventRunStarted])
	assert.True(t, seen[core.EventNodeStarted])
	assert.True(t, seen[core.EventNodeCompleted])
}

func TestEngine_DiscardRun(t *testing.T) {
	mock := invoker.NewMockInvoker()
	mock.AddResult("a", "out-a", "sig-a", 5)
	e := New(WithInvoker(mock))

	runID, err := e.StartWorkflow(context.Background(), workflowCfg("discard", workerNode("a")))
	require.NoError(t, err)
	waitSettled(t, e, runID)

	e.DiscardRun(runID)
	_, err = e.State(runID)
	assert.ErrorIs(t, err, core.ErrRunNotFound)
	_, err = e.Signatures(runID)
	assert.ErrorIs(t, err, core.ErrRunNotFound)
}

func TestEngine_ConcurrentRunsIsolated(t *testing.T) {
	mock := invoker.NewMockInvoker()
	mock.AddError("x", errors.New("boom"))
	mock.AddResult("y", "out-y", "sig-y", 5)
	e := New(WithInvoker(mock))

	failing, err := e.StartWorkflow(context.Background(), workflowCfg("wf-fail", workerNode("x")))
	require.NoError(t, err)
	passing, err := e.StartWorkflow(context.Background(), workflowCfg("wf-pass", workerNode("y")))
	require.NoError(t, err)

	assert.Equal(t, core.RunFailed, waitSettled(t, e, failing).Status)
	assert.Equal(t, core.RunCompleted, waitSettled(t, e, passing).Status)
}

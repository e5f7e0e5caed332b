package runtime

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentgrid/core"
	"github.com/hupe1980/agentgrid/workflow"
)

func mustPlan(t *testing.T, agents ...core.AgentNode) *core.ExecutionPlan {
	t.Helper()
	plan, err := workflow.Validate(core.WorkflowConfig{ID: "wf", Agents: agents})
	require.NoError(t, err)
	return plan
}

func node(id string, deps ...string) core.AgentNode {
	return core.AgentNode{ID: id, Role: core.RoleWorker, Model: core.VariantFlash, DependsOn: deps, Prompt: "p"}
}

func TestMachine_CreateAndStart(t *testing.T) {
	m := NewMachine()
	runID := m.CreateRun(mustPlan(t, node("a"), node("b", "a")))

	snap, err := m.Snapshot(runID)
	require.NoError(t, err)
	assert.Equal(t, core.RunIdle, snap.Status)
	for _, n := range snap.Nodes {
		assert.Equal(t, core.NodePending, n.Status)
	}

	// Idle runs expose no eligible nodes.
	eligible, err := m.EligibleNodes(runID)
	require.NoError(t, err)
	assert.Empty(t, eligible)

	require.NoError(t, m.Start(runID))
	assert.Error(t, m.Start(runID), "second start must be rejected")

	eligible, err = m.EligibleNodes(runID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, eligible)
}

func TestMachine_UnknownRun(t *testing.T) {
	m := NewMachine()
	_, err := m.Snapshot("missing")
	assert.ErrorIs(t, err, core.ErrRunNotFound)
	assert.ErrorIs(t, m.Start("missing"), core.ErrRunNotFound)
	assert.ErrorIs(t, m.BeginNode("missing", "a"), core.ErrRunNotFound)
}

func TestMachine_EligibilityIdempotent(t *testing.T) {
	m := NewMachine()
	runID := m.CreateRun(mustPlan(t, node("a"), node("b", "a"), node("c")))
	require.NoError(t, m.Start(runID))

	first, _ := m.EligibleNodes(runID)
	second, _ := m.EligibleNodes(runID)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"a", "c"}, first)
}

func TestMachine_BeginNodeGuards(t *testing.T) {
	m := NewMachine()
	runID := m.CreateRun(mustPlan(t, node("a"), node("b", "a")))
	require.NoError(t, m.Start(runID))

	// b's dependency is not completed yet.
	var inv *core.InvalidTransitionError
	err := m.BeginNode(runID, "b")
	require.True(t, errors.As(err, &inv))
	assert.Equal(t, "b", inv.NodeID)

	require.NoError(t, m.BeginNode(runID, "a"))

	// Second begin on the same node fails and leaves state unchanged.
	err = m.BeginNode(runID, "a")
	require.True(t, errors.As(err, &inv))
	snap, _ := m.Snapshot(runID)
	got, _ := snap.Node("a")
	assert.Equal(t, core.NodeRunning, got.Status)

	// Completing a node that is not Running fails.
	err = m.CompleteNode(runID, "b", 0)
	require.True(t, errors.As(err, &inv))

	assert.ErrorIs(t, m.BeginNode(runID, "ghost"), core.ErrNodeNotFound)
}

func TestMachine_BeginNodeRace(t *testing.T) {
	m := NewMachine()
	runID := m.CreateRun(mustPlan(t, node("a")))
	require.NoError(t, m.Start(runID))

	const attempts = 32
	var wg sync.WaitGroup
	wins := make(chan struct{}, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.BeginNode(runID, "a") == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	assert.Equal(t, 1, count, "exactly one BeginNode may succeed")
}

func TestMachine_LinearCompletion(t *testing.T) {
	m := NewMachine()
	runID := m.CreateRun(mustPlan(t, node("a"), node("b", "a")))
	require.NoError(t, m.Start(runID))

	require.NoError(t, m.BeginNode(runID, "a"))
	require.NoError(t, m.CompleteNode(runID, "a", 120))

	eligible, _ := m.EligibleNodes(runID)
	assert.Equal(t, []string{"b"}, eligible)

	require.NoError(t, m.BeginNode(runID, "b"))
	require.NoError(t, m.CompleteNode(runID, "b", 80))

	snap, _ := m.Snapshot(runID)
	assert.Equal(t, core.RunCompleted, snap.Status)
	assert.Equal(t, 200, snap.TotalTokens)
	require.NotNil(t, snap.EndedAt)
}

func TestMachine_DiamondFanIn(t *testing.T) {
	m := NewMachine()
	runID := m.CreateRun(mustPlan(t, node("a"), node("b", "a"), node("c", "a"), node("d", "b", "c")))
	require.NoError(t, m.Start(runID))

	require.NoError(t, m.BeginNode(runID, "a"))
	require.NoError(t, m.CompleteNode(runID, "a", 10))

	eligible, _ := m.EligibleNodes(runID)
	assert.Equal(t, []string{"b", "c"}, eligible)

	require.NoError(t, m.BeginNode(runID, "b"))
	require.NoError(t, m.BeginNode(runID, "c"))

	// d must stay ineligible until both b and c completed, regardless of
	// which finishes first.
	require.NoError(t, m.CompleteNode(runID, "c", 10))
	eligible, _ = m.EligibleNodes(runID)
	assert.Empty(t, eligible)

	require.NoError(t, m.CompleteNode(runID, "b", 10))
	eligible, _ = m.EligibleNodes(runID)
	assert.Equal(t, []string{"d"}, eligible)
}

func TestMachine_FailureBlocksDependentSubgraphOnly(t *testing.T) {
	// b -> d; e independent of b.
	m := NewMachine()
	runID := m.CreateRun(mustPlan(t, node("a"), node("b", "a"), node("d", "b"), node("e", "a")))
	require.NoError(t, m.Start(runID))

	require.NoError(t, m.BeginNode(runID, "a"))
	require.NoError(t, m.CompleteNode(runID, "a", 5))
	require.NoError(t, m.BeginNode(runID, "b"))
	require.NoError(t, m.FailNode(runID, "b", errors.New("boom")))

	// Independent branch continues.
	eligible, _ := m.EligibleNodes(runID)
	assert.Equal(t, []string{"e"}, eligible)
	status, _ := m.Status(runID)
	assert.Equal(t, core.RunRunning, status)

	// d never becomes eligible and cannot be begun.
	var inv *core.InvalidTransitionError
	require.True(t, errors.As(m.BeginNode(runID, "d"), &inv))

	require.NoError(t, m.BeginNode(runID, "e"))
	require.NoError(t, m.CompleteNode(runID, "e", 5))

	snap, _ := m.Snapshot(runID)
	assert.Equal(t, core.RunFailed, snap.Status)

	b, _ := snap.Node("b")
	assert.Equal(t, core.NodeFailed, b.Status)
	assert.Equal(t, "boom", b.Error)

	d, _ := snap.Node("d")
	assert.Equal(t, core.NodeBlocked, d.Status)

	e, _ := snap.Node("e")
	assert.Equal(t, core.NodeCompleted, e.Status)
}

func TestMachine_InterleavingIndependentFinalState(t *testing.T) {
	build := func() (*Machine, string) {
		m := NewMachine()
		runID := m.CreateRun(mustPlan(t, node("a"), node("b", "a"), node("c", "a"), node("d", "b", "c")))
		require.NoError(t, m.Start(runID))
		require.NoError(t, m.BeginNode(runID, "a"))
		require.NoError(t, m.CompleteNode(runID, "a", 1))
		require.NoError(t, m.BeginNode(runID, "b"))
		require.NoError(t, m.BeginNode(runID, "c"))
		return m, runID
	}

	finish := func(m *Machine, runID string, order []string) Snapshot {
		for _, id := range order {
			require.NoError(t, m.CompleteNode(runID, id, 1))
		}
		require.NoError(t, m.BeginNode(runID, "d"))
		require.NoError(t, m.CompleteNode(runID, "d", 1))
		snap, err := m.Snapshot(runID)
		require.NoError(t, err)
		return snap
	}

	m1, r1 := build()
	first := finish(m1, r1, []string{"b", "c"})
	m2, r2 := build()
	second := finish(m2, r2, []string{"c", "b"})

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.Nodes, second.Nodes)
	assert.Equal(t, first.TotalTokens, second.TotalTokens)
}

func TestMachine_ExpireRun(t *testing.T) {
	m := NewMachine()
	runID := m.CreateRun(mustPlan(t, node("a"), node("b", "a")))
	require.NoError(t, m.Start(runID))
	require.NoError(t, m.BeginNode(runID, "a"))

	require.NoError(t, m.ExpireRun(runID, core.ErrRunTimeout))

	snap, _ := m.Snapshot(runID)
	assert.Equal(t, core.RunFailed, snap.Status)
	for _, n := range snap.Nodes {
		assert.Equal(t, core.NodeFailed, n.Status)
		assert.Equal(t, core.ErrRunTimeout.Error(), n.Error)
	}
}

func TestMachine_ForceFail(t *testing.T) {
	m := NewMachine()
	runID := m.CreateRun(mustPlan(t, node("a"), node("b", "a")))
	require.NoError(t, m.Start(runID))
	require.NoError(t, m.BeginNode(runID, "a"))
	require.NoError(t, m.CompleteNode(runID, "a", 10))

	require.NoError(t, m.ForceFail(runID, "b", core.ErrBudgetExceeded))

	snap, _ := m.Snapshot(runID)
	assert.Equal(t, core.RunFailed, snap.Status)
	b, _ := snap.Node("b")
	assert.Equal(t, core.NodeFailed, b.Status)
	assert.Equal(t, core.ErrBudgetExceeded.Error(), b.Error)

	// Terminal nodes cannot be force-failed again.
	var inv *core.InvalidTransitionError
	assert.True(t, errors.As(m.ForceFail(runID, "b", core.ErrBudgetExceeded), &inv))
}

func TestMachine_Discard(t *testing.T) {
	m := NewMachine()
	runID := m.CreateRun(mustPlan(t, node("a")))
	m.Discard(runID)
	_, err := m.Snapshot(runID)
	assert.ErrorIs(t, err, core.ErrRunNotFound)
}

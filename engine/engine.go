package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/agentgrid/artifact"
	"github.com/hupe1980/agentgrid/core"
	"github.com/hupe1980/agentgrid/invoker"
	"github.com/hupe1980/agentgrid/logging"
	"github.com/hupe1980/agentgrid/runtime"
	"github.com/hupe1980/agentgrid/signature"
	"github.com/hupe1980/agentgrid/workflow"
)

// Config defines tuning parameters for the Engine's operational behavior.
type Config struct {
	// MaxConcurrentInvocations limits the number of node invocations that
	// can execute simultaneously within a run. Set to 0 for unlimited
	// (not recommended).
	MaxConcurrentInvocations int

	// EventBufferSize sets the channel buffer size per event subscriber.
	EventBufferSize int

	// DefaultTimeout bounds runs whose WorkflowConfig carries no timeout.
	DefaultTimeout time.Duration
}

// DefaultConfig provides production-ready default configuration values.
var DefaultConfig = Config{
	MaxConcurrentInvocations: 10,
	EventBufferSize:          100,
	DefaultTimeout:           5 * time.Minute,
}

// Options configures an Engine instance using the functional options pattern.
// All services have in-memory defaults so the engine is usable without
// external dependencies.
type Options struct {
	// Config contains operational parameters for the engine behavior.
	// Defaults to DefaultConfig if not specified.
	Config Config

	// SignatureStore persists thought signatures keyed (run, node).
	// Defaults to the in-memory implementation if not provided.
	SignatureStore core.SignatureStore

	// OutputStore persists node output payloads.
	// Defaults to the in-memory implementation if not provided.
	OutputStore core.OutputStore

	// Invoker executes individual nodes. Defaults to a MockInvoker,
	// which is only useful for development and tests.
	Invoker invoker.Invoker

	// Logger provides structured logging for debugging and monitoring.
	// Defaults to NoOp logger if nil.
	Logger logging.Logger
}

// WithConfig overrides the engine configuration.
func WithConfig(cfg Config) func(o *Options) {
	return func(o *Options) { o.Config = cfg }
}

// WithSignatureStore overrides the signature store.
func WithSignatureStore(s core.SignatureStore) func(o *Options) {
	return func(o *Options) { o.SignatureStore = s }
}

// WithOutputStore overrides the output store.
func WithOutputStore(s core.OutputStore) func(o *Options) {
	return func(o *Options) { o.OutputStore = s }
}

// WithInvoker sets the execution backend for node invocations.
func WithInvoker(inv invoker.Invoker) func(o *Options) {
	return func(o *Options) { o.Invoker = inv }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// Engine drives workflow runs: it validates configurations, owns the
// per-run orchestration goroutine, and coordinates the state machine with
// the signature and output stores.
type Engine struct {
	config     Config
	machine    *runtime.Machine
	signatures core.SignatureStore
	outputs    core.OutputStore
	invoker    invoker.Invoker
	logger     logging.Logger
	bus        *Bus
}

// New creates an Engine with sensible defaults and optional configuration.
func New(optFns ...func(o *Options)) *Engine {
	opts := Options{
		Config:         DefaultConfig,
		SignatureStore: signature.NewInMemoryStore(),
		OutputStore:    artifact.NewInMemoryStore(),
		Invoker:        invoker.NewMockInvoker(),
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Engine{
		config:     opts.Config,
		machine:    runtime.NewMachine(),
		signatures: opts.SignatureStore,
		outputs:    opts.OutputStore,
		invoker:    opts.Invoker,
		logger:     opts.Logger,
		bus:        NewBus(opts.Config.EventBufferSize),
	}
}

// Subscribe registers an observer for runtime events across all runs. The
// returned function unsubscribes and closes the channel.
func (e *Engine) Subscribe() (<-chan core.RuntimeEvent, func()) {
	return e.bus.Subscribe()
}

// StartWorkflow validates the workflow, creates and starts a run, and drives
// it to completion in a background goroutine. It returns the run id
// immediately; progress is observable via State, Signatures and Subscribe.
//
// Validation failures (unknown dependency, cycle) return a *core.GraphError
// and no run is created.
func (e *Engine) StartWorkflow(ctx context.Context, cfg core.WorkflowConfig) (string, error) {
	plan, err := workflow.Validate(cfg)
	if err != nil {
		return "", err
	}

	runID := e.machine.CreateRun(plan)
	if err := e.machine.Start(runID); err != nil {
		return "", err
	}

	timeout := e.config.DefaultTimeout
	if cfg.TimeoutMS > 0 {
		timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	}

	budget := core.NewTokenBudget(cfg.MaxTokenBudget)

	// The run outlives the caller's request context; only the run timeout
	// bounds it.
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)

	e.logger.Info("run started", "run_id", runID, "workflow_id", cfg.ID, "nodes", plan.Len())
	e.bus.Publish(core.NewRuntimeEvent(runID, core.EventRunStarted, "", map[string]any{
		"workflow_id": cfg.ID,
	}))

	go func() {
		defer cancel()
		e.runLoop(runCtx, runID, budget)
	}()

	return runID, nil
}

// nodeResult carries one invocation outcome back into the run loop.
type nodeResult struct {
	nodeID string
	res    *invoker.Result
	err    error
}

// runLoop drives a single run: dispatch eligible nodes, absorb results,
// enforce budget and timeout, and publish the terminal event once settled.
func (e *Engine) runLoop(ctx context.Context, runID string, budget *core.TokenBudget) {
	maxConcurrent := e.config.MaxConcurrentInvocations
	if maxConcurrent <= 0 {
		// Unlimited concurrency still needs a bound for channel sizing; a
		// run can never have more invocations in flight than nodes.
		if plan, err := e.machine.Plan(runID); err == nil {
			maxConcurrent = plan.Len()
		} else {
			maxConcurrent = 1
		}
	}
	sem := make(chan struct{}, maxConcurrent)
	results := make(chan nodeResult, maxConcurrent)

	inFlight := 0
	budgetExhausted := false

	for {
		if !budgetExhausted {
			inFlight += e.dispatch(ctx, runID, sem, results)
		}

		if inFlight == 0 {
			status, err := e.machine.Status(runID)
			if err != nil || status.Terminal() {
				e.publishTerminal(runID)
				return
			}
			// Nothing in flight and nothing eligible on a non-terminal run
			// means every remaining node is unreachable; the state machine
			// settles that on the next transition, which will never come.
			// Defensively treat it as settled.
			e.publishTerminal(runID)
			return
		}

		select {
		case <-ctx.Done():
			if err := e.machine.ExpireRun(runID, core.ErrRunTimeout); err != nil {
				e.logger.Error("run expiry failed", "run_id", runID, "error", err)
			}
			e.logger.Warn("run timed out", "run_id", runID)
			e.publishTerminal(runID)
			return

		case r := <-results:
			inFlight--
			if exhausted := e.absorb(runID, r, budget); exhausted && !budgetExhausted {
				budgetExhausted = true
				e.failPending(runID)
			}
		}
	}
}

// dispatch begins every currently eligible node that fits under the
// concurrency limit and returns how many invocations were launched.
func (e *Engine) dispatch(ctx context.Context, runID string, sem chan struct{}, results chan<- nodeResult) int {
	eligible, err := e.machine.EligibleNodes(runID)
	if err != nil {
		return 0
	}

	started := 0
	for _, nodeID := range eligible {
		select {
		case sem <- struct{}{}:
		default:
			return started
		}

		if err := e.machine.BeginNode(runID, nodeID); err != nil {
			<-sem
			continue
		}

		e.bus.Publish(core.NewRuntimeEvent(runID, core.EventNodeStarted, nodeID, nil))
		e.logger.Debug("node started", "run_id", runID, "node_id", nodeID)

		started++
		go func(nodeID string) {
			defer func() { <-sem }()
			res, err := e.executeNode(ctx, runID, nodeID)
			results <- nodeResult{nodeID: nodeID, res: res, err: err}
		}(nodeID)
	}
	return started
}

// executeNode assembles the invocation request for a node already marked
// Running and executes it against the backend.
func (e *Engine) executeNode(ctx context.Context, runID, nodeID string) (*invoker.Result, error) {
	plan, err := e.machine.Plan(runID)
	if err != nil {
		return nil, err
	}
	node, ok := plan.Node(nodeID)
	if !ok {
		return nil, fmt.Errorf("node %q: %w", nodeID, core.ErrNodeNotFound)
	}

	deps := plan.Dependencies(nodeID)
	sigs, err := e.signatures.GetInputs(runID, deps)
	if err != nil {
		return nil, err
	}

	inputs := make(map[string][]byte, len(deps))
	for _, dep := range deps {
		out, err := e.outputs.Get(runID, dep)
		if err != nil {
			return nil, fmt.Errorf("input for node %q: %w", nodeID, err)
		}
		inputs[dep] = out
	}

	return e.invoker.Invoke(ctx, invoker.Request{
		RunID:      runID,
		WorkflowID: plan.WorkflowID(),
		Node:       node,
		Inputs:     inputs,
		Signatures: sigs,
	})
}

// absorb records one invocation outcome into the stores and the state
// machine. Reports whether the token budget is now exhausted.
func (e *Engine) absorb(runID string, r nodeResult, budget *core.TokenBudget) bool {
	if r.err != nil {
		if err := e.machine.FailNode(runID, r.nodeID, r.err); err != nil {
			e.logger.Error("node failure not recorded", "run_id", runID, "node_id", r.nodeID, "error", err)
		}
		e.logger.Warn("node failed", "run_id", runID, "node_id", r.nodeID, "error", r.err)
		e.bus.Publish(core.NewRuntimeEvent(runID, core.EventNodeFailed, r.nodeID, map[string]any{
			"error": r.err.Error(),
		}))
		return false
	}

	// The signature is written before the completion transition so a
	// dependent that becomes eligible always finds it. Empty signatures are
	// recorded too.
	if err := e.signatures.Put(runID, r.nodeID, r.res.Signature); err != nil {
		e.logger.Error("signature not recorded", "run_id", runID, "node_id", r.nodeID, "error", err)
	}
	if err := e.outputs.Put(runID, r.nodeID, r.res.Output); err != nil {
		e.logger.Error("output not recorded", "run_id", runID, "node_id", r.nodeID, "error", err)
	}

	if err := e.machine.CompleteNode(runID, r.nodeID, r.res.TokensUsed); err != nil {
		e.logger.Error("node completion not recorded", "run_id", runID, "node_id", r.nodeID, "error", err)
		return false
	}

	e.logger.Debug("node completed", "run_id", runID, "node_id", r.nodeID, "tokens", r.res.TokensUsed)
	e.bus.Publish(core.NewRuntimeEvent(runID, core.EventNodeCompleted, r.nodeID, map[string]any{
		"tokens_used": r.res.TokensUsed,
	}))

	return budget.Record(r.res.TokensUsed)
}

// failPending force-fails every node still Pending once the token budget is
// exhausted. Running nodes are allowed to finish; their results still count.
func (e *Engine) failPending(runID string) {
	snap, err := e.machine.Snapshot(runID)
	if err != nil {
		return
	}
	e.logger.Warn("token budget exhausted", "run_id", runID)
	for _, n := range snap.Nodes {
		if n.Status != core.NodePending {
			continue
		}
		if err := e.machine.ForceFail(runID, n.ID, core.ErrBudgetExceeded); err != nil {
			continue
		}
		e.bus.Publish(core.NewRuntimeEvent(runID, core.EventNodeFailed, n.ID, map[string]any{
			"error": core.ErrBudgetExceeded.Error(),
		}))
	}
}

// publishTerminal emits the run-level terminal event matching the final
// status.
func (e *Engine) publishTerminal(runID string) {
	snap, err := e.machine.Snapshot(runID)
	if err != nil {
		return
	}
	detail := map[string]any{"total_tokens": snap.TotalTokens}
	switch snap.Status {
	case core.RunCompleted:
		e.logger.Info("run completed", "run_id", runID, "total_tokens", snap.TotalTokens)
		e.bus.Publish(core.NewRuntimeEvent(runID, core.EventRunCompleted, "", detail))
	case core.RunFailed:
		e.logger.Warn("run failed", "run_id", runID, "total_tokens", snap.TotalTokens)
		e.bus.Publish(core.NewRuntimeEvent(runID, core.EventRunFailed, "", detail))
	}
}

// State returns the current snapshot of a run.
func (e *Engine) State(runID string) (runtime.Snapshot, error) {
	return e.machine.Snapshot(runID)
}

// Signatures returns every recorded thought signature for a run, keyed by
// node id.
func (e *Engine) Signatures(runID string) (map[string]string, error) {
	if _, err := e.machine.Status(runID); err != nil {
		return nil, err
	}
	return e.signatures.All(runID), nil
}

// InvokeNode manually triggers a single node. The same Pending→Running guard
// applies as in the orchestration loop: a node that is already running,
// terminal, blocked, or has unmet dependencies is rejected with
// *core.InvalidTransitionError.
//
// Intended for runs driven externally rather than by StartWorkflow's loop;
// triggering a node in an actively looping run loses the race with the
// dispatcher and reports the resulting invalid transition.
func (e *Engine) InvokeNode(ctx context.Context, runID, nodeID string) (*invoker.Result, error) {
	if err := e.machine.BeginNode(runID, nodeID); err != nil {
		return nil, err
	}
	e.bus.Publish(core.NewRuntimeEvent(runID, core.EventNodeStarted, nodeID, nil))

	res, err := e.executeNode(ctx, runID, nodeID)
	if err != nil {
		if failErr := e.machine.FailNode(runID, nodeID, err); failErr != nil {
			e.logger.Error("node failure not recorded", "run_id", runID, "node_id", nodeID, "error", failErr)
		}
		e.bus.Publish(core.NewRuntimeEvent(runID, core.EventNodeFailed, nodeID, map[string]any{
			"error": err.Error(),
		}))
		e.publishTerminal(runID)
		return nil, err
	}

	if putErr := e.signatures.Put(runID, nodeID, res.Signature); putErr != nil {
		e.logger.Error("signature not recorded", "run_id", runID, "node_id", nodeID, "error", putErr)
	}
	if putErr := e.outputs.Put(runID, nodeID, res.Output); putErr != nil {
		e.logger.Error("output not recorded", "run_id", runID, "node_id", nodeID, "error", putErr)
	}
	if err := e.machine.CompleteNode(runID, nodeID, res.TokensUsed); err != nil {
		return nil, err
	}
	e.bus.Publish(core.NewRuntimeEvent(runID, core.EventNodeCompleted, nodeID, map[string]any{
		"tokens_used": res.TokensUsed,
	}))
	e.publishTerminal(runID)
	return res, nil
}

// CreateRun validates a workflow and creates a run without starting the
// orchestration loop. Nodes are then driven manually through InvokeNode.
func (e *Engine) CreateRun(cfg core.WorkflowConfig) (string, error) {
	plan, err := workflow.Validate(cfg)
	if err != nil {
		return "", err
	}
	runID := e.machine.CreateRun(plan)
	if err := e.machine.Start(runID); err != nil {
		return "", err
	}
	e.bus.Publish(core.NewRuntimeEvent(runID, core.EventRunStarted, "", map[string]any{
		"workflow_id": cfg.ID,
	}))
	return runID, nil
}

// DiscardRun removes a run's state, signatures and outputs.
func (e *Engine) DiscardRun(runID string) {
	e.machine.Discard(runID)
	e.signatures.Purge(runID)
	e.outputs.Purge(runID)
}

// Close shuts down the event bus. In-flight runs keep executing but their
// events are no longer delivered.
func (e *Engine) Close() {
	e.bus.Close()
}

// Package agentgrid provides a high-level façade over the orchestration
// engine and its service abstractions (signatures, outputs, invocation &
// logging) enabling rapid construction of agent workflow runtimes. Most
// applications interact with this package by:
//  1. Creating an AgentGrid via New() (optionally overriding the default
//     in-memory stores and the mock invoker)
//  2. Starting validated workflow runs (StartWorkflow) or driving nodes
//     manually (CreateRun + InvokeNode)
//  3. Observing progress via State, Signatures and Subscribe
//
// The façade delegates orchestration to engine.Engine while keeping setup and
// usage ergonomics concise. All defaults are safe for local development and
// testing; production deployments supply a real provider invoker and a
// structured logger.
package agentgrid

import (
	"context"

	"github.com/hupe1980/agentgrid/artifact"
	"github.com/hupe1980/agentgrid/core"
	"github.com/hupe1980/agentgrid/engine"
	"github.com/hupe1980/agentgrid/invoker"
	"github.com/hupe1980/agentgrid/logging"
	"github.com/hupe1980/agentgrid/runtime"
	"github.com/hupe1980/agentgrid/signature"
)

// Options configures the AgentGrid instance.
type Options struct {
	// EngineConfig tunes concurrency, event buffering and the default run
	// timeout.
	EngineConfig engine.Config

	// Stores (default to in-memory implementations if not provided)
	SignatureStore core.SignatureStore
	OutputStore    core.OutputStore

	// Invoker executes nodes. Defaults to a MockInvoker.
	Invoker invoker.Invoker

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// AgentGrid is the high-level façade aggregating the underlying engine and
// stores.
type AgentGrid struct {
	opts   Options
	engine *engine.Engine
}

// New creates a new AgentGrid instance with optional overrides. Any unset
// service is initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *AgentGrid {
	opts := Options{
		EngineConfig:   engine.DefaultConfig,
		SignatureStore: signature.NewInMemoryStore(),
		OutputStore:    artifact.NewInMemoryStore(),
		Invoker:        invoker.NewMockInvoker(),
		Logger:         logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	e := engine.New(func(o *engine.Options) {
		o.Config = opts.EngineConfig
		o.SignatureStore = opts.SignatureStore
		o.OutputStore = opts.OutputStore
		o.Invoker = opts.Invoker
		o.Logger = opts.Logger
	})

	return &AgentGrid{opts: opts, engine: e}
}

// Engine exposes the underlying engine, e.g. for wiring the HTTP control
// surface.
func (g *AgentGrid) Engine() *engine.Engine { return g.engine }

// StartWorkflow validates the workflow and starts an orchestrated run,
// returning its run id immediately.
func (g *AgentGrid) StartWorkflow(ctx context.Context, cfg core.WorkflowConfig) (string, error) {
	return g.engine.StartWorkflow(ctx, cfg)
}

// CreateRun validates the workflow and creates a run that is driven manually
// through InvokeNode instead of the orchestration loop.
func (g *AgentGrid) CreateRun(cfg core.WorkflowConfig) (string, error) {
	return g.engine.CreateRun(cfg)
}

// InvokeNode manually triggers a single eligible node in a run.
func (g *AgentGrid) InvokeNode(ctx context.Context, runID, nodeID string) (*invoker.Result, error) {
	return g.engine.InvokeNode(ctx, runID, nodeID)
}

// State returns the current snapshot of a run.
func (g *AgentGrid) State(runID string) (runtime.Snapshot, error) {
	return g.engine.State(runID)
}

// Signatures returns every recorded thought signature for a run.
func (g *AgentGrid) Signatures(runID string) (map[string]string, error) {
	return g.engine.Signatures(runID)
}

// Subscribe registers an observer for runtime events across all runs.
func (g *AgentGrid) Subscribe() (<-chan core.RuntimeEvent, func()) {
	return g.engine.Subscribe()
}

// DiscardRun removes a run's state, signatures and outputs.
func (g *AgentGrid) DiscardRun(runID string) {
	g.engine.DiscardRun(runID)
}

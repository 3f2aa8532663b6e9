package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/flowgraph/provider"
	"github.com/BaSui01/flowgraph/registry"
	"github.com/BaSui01/flowgraph/types"
)

// WorkflowStore is the persistence collaborator: the engine reads fully
// materialized workflows and never writes back.
type WorkflowStore interface {
	GetWorkflow(ctx context.Context, id string) (*types.Workflow, error)
}

// Config holds the engine's tunable knobs. Zero values take documented
// defaults.
type Config struct {
	// ProviderTimeout bounds each AI provider call. Defaults to 30s.
	ProviderTimeout time.Duration

	// MaxRetries bounds additional attempts for retryable AI failures.
	// Defaults to 2.
	MaxRetries int

	// RetryInitialInterval seeds the retry backoff. Defaults to 500ms.
	RetryInitialInterval time.Duration
}

// Engine ties the registry, graph builder, and scheduler together behind
// the execute entry point used by the API layer.
type Engine struct {
	reg     *registry.Registry
	store   WorkflowStore
	builder *Builder
	sched   *Scheduler
	logger  *zap.Logger
}

// New creates an engine and registers the four category executors on the
// registry. metrics may be nil.
func New(cfg Config, reg *registry.Registry, store WorkflowStore, providers *provider.Registry, metrics Metrics, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	reg.RegisterExecutor(NewInputExecutor(logger))
	reg.RegisterExecutor(NewAIModelExecutor(providers, cfg.ProviderTimeout, logger))
	reg.RegisterExecutor(NewLogicExecutor(logger))
	reg.RegisterExecutor(NewOutputExecutor(logger))

	return &Engine{
		reg:     reg,
		store:   store,
		builder: NewBuilder(reg, logger),
		sched: NewScheduler(reg, SchedulerConfig{
			MaxRetries:           cfg.MaxRetries,
			RetryInitialInterval: cfg.RetryInitialInterval,
		}, metrics, logger),
		logger: logger.With(zap.String("component", "engine")),
	}
}

// Execute loads the workflow, builds its graph, and runs it against the
// supplied runtime inputs. Inputs bound to non-Input modules are
// ignored.
func (e *Engine) Execute(ctx context.Context, workflowID string, runtimeInputs map[string]any) (*RunResult, error) {
	wf, err := e.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	return e.ExecuteWorkflow(ctx, wf, runtimeInputs)
}

// ExecuteWorkflow builds and runs an already materialized workflow.
func (e *Engine) ExecuteWorkflow(ctx context.Context, wf *types.Workflow, runtimeInputs map[string]any) (*RunResult, error) {
	graph, err := e.builder.Build(wf)
	if err != nil {
		e.logger.Warn("graph build failed",
			zap.String("workflow_id", wf.ID),
			zap.Error(err),
		)
		return nil, err
	}
	return e.sched.Run(ctx, graph, runtimeInputs)
}

// Validate builds the workflow's graph without running it, surfacing
// structural and config errors for the editor's validate action.
func (e *Engine) Validate(wf *types.Workflow) error {
	_, err := e.builder.Build(wf)
	return err
}

package engine

import (
	"context"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/flowgraph/registry"
	"github.com/BaSui01/flowgraph/types"
)

// SchedulerConfig holds the retry policy applied around AI module calls.
// Retries are a scheduler concern; executors themselves never retry.
type SchedulerConfig struct {
	// MaxRetries bounds additional attempts after the first failure of a
	// retryable AI call. Defaults to 2.
	MaxRetries int

	// RetryInitialInterval seeds the exponential backoff between
	// attempts. Defaults to 500ms.
	RetryInitialInterval time.Duration
}

func (c *SchedulerConfig) withDefaults() SchedulerConfig {
	out := *c
	if out.MaxRetries == 0 {
		out.MaxRetries = 2
	}
	if out.RetryInitialInterval == 0 {
		out.RetryInitialInterval = 500 * time.Millisecond
	}
	return out
}

// Metrics receives execution telemetry from the scheduler. Implementations
// must be safe for concurrent use.
type Metrics interface {
	RunCompleted(workflowID string, succeeded bool, duration time.Duration)
	ModuleExecuted(typeID string, state State, duration time.Duration)
}

// Scheduler drives one workflow run in topological order. Ready modules
// are executed in ascending module id, which makes the execution
// sequence of independent branches reproducible.
type Scheduler struct {
	reg     *registry.Registry
	cfg     SchedulerConfig
	metrics Metrics
	logger  *zap.Logger
}

// NewScheduler creates a scheduler dispatching through the registry.
// metrics may be nil.
func NewScheduler(reg *registry.Registry, cfg SchedulerConfig, metrics Metrics, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		reg:     reg,
		cfg:     cfg.withDefaults(),
		metrics: metrics,
		logger:  logger.With(zap.String("component", "scheduler")),
	}
}

// runState is the mutable state of one run. All writes happen from the
// scheduler's single coordinating loop; executors only see their own
// inputs and return values.
type runState struct {
	outputs  map[string]map[string]any // module id -> port -> value
	statuses map[string]ModuleStatus
	inputs   map[string]any // runtime inputs keyed by Input module id
}

// Run executes the graph and assembles the RunResult. A cancelled run
// returns an error and discards completed module outputs; it never
// reports partial success.
func (s *Scheduler) Run(ctx context.Context, g *ExecutionGraph, runtimeInputs map[string]any) (*RunResult, error) {
	start := time.Now()
	st := &runState{
		outputs:  make(map[string]map[string]any, g.Len()),
		statuses: make(map[string]ModuleStatus, g.Len()),
		inputs:   runtimeInputs,
	}

	indegree := make(map[string]int, g.Len())
	for _, id := range g.ModuleIDs() {
		n, _ := g.Node(id)
		indegree[id] = len(n.Incoming)
	}

	var ready []string
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	executed := 0
	for len(ready) > 0 {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("run cancelled",
				zap.String("workflow_id", g.Workflow().ID),
				zap.Int("modules_completed", executed),
			)
			return nil, types.NewError(types.ErrRunCancelled,
				"workflow run cancelled before completion").WithCause(err)
		}

		id := ready[0]
		ready = ready[1:]
		node, _ := g.Node(id)

		s.executeModule(ctx, node, st)
		executed++

		for _, conn := range node.Outgoing {
			indegree[conn.Target]--
			if indegree[conn.Target] == 0 {
				ready = insertSorted(ready, conn.Target)
			}
		}
	}

	if err := ctx.Err(); err != nil {
		// Cancellation during the last module: discard everything.
		return nil, types.NewError(types.ErrRunCancelled,
			"workflow run cancelled before completion").WithCause(err)
	}

	result := &RunResult{
		RunID:      uuid.NewString(),
		WorkflowID: g.Workflow().ID,
		Outputs:    make(map[string]any),
		Statuses:   st.statuses,
		StartedAt:  start,
		FinishedAt: time.Now(),
	}
	for _, id := range g.ModuleIDs() {
		n, _ := g.Node(id)
		if n.Type.Category != types.CategoryOutput {
			continue
		}
		if st.statuses[id].State == StateSucceeded {
			result.Outputs[id] = st.outputs[id]["result"]
		}
	}

	if s.metrics != nil {
		s.metrics.RunCompleted(g.Workflow().ID, result.Succeeded(), time.Since(start))
	}
	s.logger.Info("run completed",
		zap.String("workflow_id", g.Workflow().ID),
		zap.String("run_id", result.RunID),
		zap.Int("modules", g.Len()),
		zap.Bool("succeeded", result.Succeeded()),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// executeModule resolves inputs, runs the module through its category
// executor, and records the outcome. Skip conditions are decided here,
// before the executor is ever invoked.
func (s *Scheduler) executeModule(ctx context.Context, node *Node, st *runState) {
	id := node.Module.ID

	if cause, skip := s.shouldSkip(node, st); skip {
		st.statuses[id] = ModuleStatus{State: StateSkipped, Category: node.Type.Category, Cause: cause}
		s.logger.Debug("module skipped",
			zap.String("module_id", id),
			zap.String("cause", string(cause)),
		)
		if s.metrics != nil {
			s.metrics.ModuleExecuted(node.Module.Type, StateSkipped, 0)
		}
		return
	}

	inv := &registry.Invocation{
		Module: node.Module,
		Type:   node.Type,
		Config: node.Config,
		Inputs: s.gatherInputs(node, st),
	}
	if node.Type.Category == types.CategoryInput {
		inv.RuntimeInput, inv.HasRuntimeInput = st.inputs[id]
	}

	exec, err := s.reg.ExecutorFor(node.Type.Category)
	if err != nil {
		st.statuses[id] = asFailure(id, node.Type.Category, err)
		return
	}

	start := time.Now()
	outputs, err := s.invoke(ctx, exec, inv)
	duration := time.Since(start)

	if err != nil {
		st.statuses[id] = asFailure(id, node.Type.Category, err)
		s.logger.Warn("module failed",
			zap.String("module_id", id),
			zap.String("type", node.Module.Type),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
	} else {
		st.outputs[id] = outputs
		st.statuses[id] = ModuleStatus{State: StateSucceeded, Category: node.Type.Category}
		s.logger.Debug("module succeeded",
			zap.String("module_id", id),
			zap.String("type", node.Module.Type),
			zap.Duration("duration", duration),
		)
	}
	if s.metrics != nil {
		s.metrics.ModuleExecuted(node.Module.Type, st.statuses[id].State, duration)
	}
}

// invoke runs the executor, wrapping AI calls in the retry policy.
// Only errors the provider marked retryable are attempted again.
func (s *Scheduler) invoke(ctx context.Context, exec registry.Executor, inv *registry.Invocation) (map[string]any, error) {
	if inv.Type.Category != types.CategoryAIModel {
		return exec.Execute(ctx, inv)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.RetryInitialInterval

	attempt := 0
	return backoff.Retry(ctx, func() (map[string]any, error) {
		attempt++
		out, err := exec.Execute(ctx, inv)
		if err != nil && !types.IsRetryable(err) {
			return nil, backoff.Permanent(err)
		}
		if err != nil && attempt <= s.cfg.MaxRetries {
			s.logger.Debug("retrying AI module",
				zap.String("module_id", inv.Module.ID),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
		return out, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(s.cfg.MaxRetries+1)),
	)
}

// shouldSkip decides whether a module must not run: either an upstream
// module failed or was skipped, or a logic branch feeding it was not
// taken. Input gathering for runnable modules can then assume every
// incoming edge has a live source.
func (s *Scheduler) shouldSkip(node *Node, st *runState) (SkipCause, bool) {
	for _, conn := range node.Incoming {
		src := st.statuses[conn.Source]
		switch src.State {
		case StateFailed:
			return SkipUpstreamFailure, true
		case StateSkipped:
			if src.Cause == SkipBranchNotTaken {
				return SkipBranchNotTaken, true
			}
			return SkipUpstreamFailure, true
		}
		if _, produced := resolvePortValue(st.outputs[conn.Source], conn.SourcePort); !produced {
			// The source succeeded but did not produce this port: a
			// logic branch the condition did not select.
			return SkipBranchNotTaken, true
		}
	}
	return "", false
}

// gatherInputs resolves each incoming connection to the source module's
// value for the matching output port, keyed by this module's input port.
func (s *Scheduler) gatherInputs(node *Node, st *runState) map[string]any {
	inputs := make(map[string]any, len(node.Incoming))
	for _, conn := range node.Incoming {
		value, ok := resolvePortValue(st.outputs[conn.Source], conn.SourcePort)
		if !ok {
			continue
		}
		port := conn.TargetPort
		if port == "" {
			port = node.Type.DefaultInputPort()
		}
		inputs[port] = value
	}
	return inputs
}

// resolvePortValue looks up a source module's output for a port. An
// empty port name addresses the module's single produced port.
func resolvePortValue(outputs map[string]any, port string) (any, bool) {
	if outputs == nil {
		return nil, false
	}
	if port == "" {
		if len(outputs) == 1 {
			for _, v := range outputs {
				return v, true
			}
		}
		return nil, false
	}
	v, ok := outputs[port]
	return v, ok
}

func asFailure(moduleID string, category types.Category, err error) ModuleStatus {
	e, ok := err.(*types.Error)
	if !ok {
		e = types.NewError(types.ErrInternalError, err.Error()).WithCause(err)
	}
	if e.ModuleID == "" {
		e.WithModule(moduleID)
	}
	return ModuleStatus{State: StateFailed, Category: category, Error: e}
}

func insertSorted(ids []string, id string) []string {
	i := sort.SearchStrings(ids, id)
	ids = append(ids, "")
	copy(ids[i+1:], ids[i:])
	ids[i] = id
	return ids
}

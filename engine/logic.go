package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"go.uber.org/zap"

	"github.com/BaSui01/flowgraph/registry"
	"github.com/BaSui01/flowgraph/types"
)

// LogicExecutor runs Logic modules. Conditions and transform expressions
// are expr programs evaluated against an environment of the module's
// input port values. A conditional produces only the branch its
// condition selected; the other branch stays unproduced so its consumers
// are skipped.
type LogicExecutor struct {
	logger *zap.Logger

	mu       sync.Mutex
	programs map[string]*vm.Program
}

// NewLogicExecutor creates the Logic category executor.
func NewLogicExecutor(logger *zap.Logger) *LogicExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogicExecutor{
		logger:   logger.With(zap.String("component", "logic_executor")),
		programs: make(map[string]*vm.Program),
	}
}

// Category returns the category this executor serves.
func (e *LogicExecutor) Category() types.Category { return types.CategoryLogic }

// Execute evaluates the module's condition or transform expression.
func (e *LogicExecutor) Execute(ctx context.Context, inv *registry.Invocation) (map[string]any, error) {
	env := make(map[string]any, len(inv.Inputs)+1)
	for port, v := range inv.Inputs {
		env[port] = v
	}
	if _, ok := env["value"]; !ok && len(inv.Inputs) == 1 {
		for _, v := range inv.Inputs {
			env["value"] = v
		}
	}

	if condition, ok := inv.Config["condition"].(string); ok {
		return e.evalCondition(inv, condition, env)
	}
	if expression, ok := inv.Config["expression"].(string); ok {
		return e.evalTransform(inv, expression, env)
	}
	return nil, types.NewError(types.ErrConditionEval,
		fmt.Sprintf("logic module %q configures neither a condition nor an expression", inv.Module.ID)).
		WithModule(inv.Module.ID)
}

// evalCondition selects the "true" or "false" output branch and routes
// the input value onto it.
func (e *LogicExecutor) evalCondition(inv *registry.Invocation, condition string, env map[string]any) (map[string]any, error) {
	out, err := e.run(condition, env)
	if err != nil {
		return nil, types.NewError(types.ErrConditionEval,
			fmt.Sprintf("condition %q: %v", condition, err)).
			WithCause(err).WithModule(inv.Module.ID)
	}
	selected, ok := out.(bool)
	if !ok {
		return nil, types.NewError(types.ErrConditionEval,
			fmt.Sprintf("condition %q evaluated to %T, want bool", condition, out)).
			WithModule(inv.Module.ID)
	}

	branch := "false"
	if selected {
		branch = "true"
	}
	e.logger.Debug("condition evaluated",
		zap.String("module_id", inv.Module.ID),
		zap.String("branch", branch),
	)
	return map[string]any{branch: env["value"]}, nil
}

// evalTransform computes the expression and routes the result to the
// module's output port.
func (e *LogicExecutor) evalTransform(inv *registry.Invocation, expression string, env map[string]any) (map[string]any, error) {
	out, err := e.run(expression, env)
	if err != nil {
		return nil, types.NewError(types.ErrConditionEval,
			fmt.Sprintf("expression %q: %v", expression, err)).
			WithCause(err).WithModule(inv.Module.ID)
	}

	port := inv.Type.DefaultOutputPort()
	if port == "" {
		port = "output"
	}
	return map[string]any{port: out}, nil
}

// run compiles the program on first use and evaluates it against env.
// Compiled programs are cached per source; the same workflow re-run
// skips recompilation.
func (e *LogicExecutor) run(code string, env map[string]any) (any, error) {
	e.mu.Lock()
	program, ok := e.programs[code]
	e.mu.Unlock()

	if !ok {
		var err error
		program, err = expr.Compile(code, expr.AllowUndefinedVariables())
		if err != nil {
			return nil, err
		}
		e.mu.Lock()
		e.programs[code] = program
		e.mu.Unlock()
	}

	return expr.Run(program, env)
}

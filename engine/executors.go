package engine

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/BaSui01/flowgraph/registry"
	"github.com/BaSui01/flowgraph/types"
)

// InputExecutor resolves Input modules: the runtime value bound to the
// module id wins, then the configured default, then failure.
type InputExecutor struct {
	logger *zap.Logger
}

// NewInputExecutor creates the Input category executor.
func NewInputExecutor(logger *zap.Logger) *InputExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InputExecutor{logger: logger.With(zap.String("component", "input_executor"))}
}

// Category returns the category this executor serves.
func (e *InputExecutor) Category() types.Category { return types.CategoryInput }

// Execute returns the module's bound runtime value or configured default.
func (e *InputExecutor) Execute(ctx context.Context, inv *registry.Invocation) (map[string]any, error) {
	port := inv.Type.DefaultOutputPort()
	if port == "" {
		port = "value"
	}

	if inv.HasRuntimeInput {
		return map[string]any{port: inv.RuntimeInput}, nil
	}
	if def, ok := inv.Config["default"]; ok && def != nil && def != "" {
		return map[string]any{port: def}, nil
	}
	return nil, types.NewError(types.ErrMissingRuntimeInput,
		fmt.Sprintf("no runtime value supplied for input module %q and no default configured", inv.Module.ID)).
		WithModule(inv.Module.ID)
}

// OutputExecutor resolves Output modules: a passthrough of the single
// upstream value.
type OutputExecutor struct {
	logger *zap.Logger
}

// NewOutputExecutor creates the Output category executor.
func NewOutputExecutor(logger *zap.Logger) *OutputExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutputExecutor{logger: logger.With(zap.String("component", "output_executor"))}
}

// Category returns the category this executor serves.
func (e *OutputExecutor) Category() types.Category { return types.CategoryOutput }

// Execute stores the upstream value unchanged under the "result" port.
func (e *OutputExecutor) Execute(ctx context.Context, inv *registry.Invocation) (map[string]any, error) {
	if len(inv.Inputs) == 0 {
		return nil, types.NewError(types.ErrMissingInput,
			fmt.Sprintf("output module %q has no upstream value", inv.Module.ID)).
			WithModule(inv.Module.ID)
	}

	if port := inv.Type.DefaultInputPort(); port != "" {
		if v, ok := inv.Inputs[port]; ok {
			return map[string]any{"result": v}, nil
		}
	}
	ports := make([]string, 0, len(inv.Inputs))
	for p := range inv.Inputs {
		ports = append(ports, p)
	}
	sort.Strings(ports)
	return map[string]any{"result": inv.Inputs[ports[0]]}, nil
}

package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/flowgraph/types"
)

// Invocation carries everything an executor needs to run one module:
// the instance, its resolved type, the schema-validated config, and the
// values gathered from resolved incoming connections keyed by input port.
// Executors read from it and return output port values; they never touch
// shared state.
type Invocation struct {
	Module *types.ModuleInstance
	Type   *types.ModuleType
	Config map[string]any
	Inputs map[string]any

	// RuntimeInput is the externally supplied value for Input-category
	// modules. HasRuntimeInput distinguishes "supplied nil" from "absent".
	RuntimeInput    any
	HasRuntimeInput bool
}

// Executor runs modules of one category, consuming upstream port values
// and producing downstream port values.
type Executor interface {
	Category() types.Category
	Execute(ctx context.Context, inv *Invocation) (map[string]any, error)
}

// Registry resolves module-type ids and dispatches executors by category.
type Registry struct {
	mu          sync.RWMutex
	moduleTypes map[string]types.ModuleType
	executors   map[types.Category]Executor
	logger      *zap.Logger
}

// New creates an empty registry.
func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		moduleTypes: make(map[string]types.ModuleType),
		executors:   make(map[types.Category]Executor),
		logger:      logger.With(zap.String("component", "registry")),
	}
}

// NewWithCatalog creates a registry pre-populated with the static catalog.
func NewWithCatalog(logger *zap.Logger) *Registry {
	r := New(logger)
	for _, mt := range Catalog() {
		r.RegisterType(mt)
	}
	return r
}

// RegisterType adds a module type. An existing type with the same id is
// replaced.
func (r *Registry) RegisterType(mt types.ModuleType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.moduleTypes[mt.ID] = mt
}

// RegisterExecutor binds an executor to its category.
func (r *Registry) RegisterExecutor(e Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[e.Category()] = e
	r.logger.Debug("executor registered", zap.String("category", string(e.Category())))
}

// Resolve returns the module type for the given id.
func (r *Registry) Resolve(typeID string) (*types.ModuleType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	mt, ok := r.moduleTypes[typeID]
	if !ok {
		return nil, types.NewError(types.ErrUnknownModuleType,
			fmt.Sprintf("module type %q is not registered", typeID))
	}
	return &mt, nil
}

// ExecutorFor returns the executor registered for the category.
func (r *Registry) ExecutorFor(category types.Category) (Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.executors[category]
	if !ok {
		return nil, types.NewError(types.ErrInternalError,
			fmt.Sprintf("no executor registered for category %q", category))
	}
	return e, nil
}

// Types returns all registered module types sorted by id.
func (r *Registry) Types() []types.ModuleType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.ModuleType, 0, len(r.moduleTypes))
	for _, mt := range r.moduleTypes {
		out = append(out, mt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered module types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.moduleTypes)
}

// Package flowgraph provides a top-level convenience entry point for
// embedding the workflow engine with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/flowgraph"
//
//	eng := flowgraph.New(flowgraph.WithStub())
//	result, err := eng.ExecuteWorkflow(ctx, wf, map[string]any{"in1": "hi"})
//
// Servers that need configuration, persistence selection, and metrics
// should wire the packages directly the way cmd/flowgraph does.
package flowgraph

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/flowgraph/engine"
	"github.com/BaSui01/flowgraph/provider"
	"github.com/BaSui01/flowgraph/registry"
	"github.com/BaSui01/flowgraph/types"
)

type options struct {
	cfg       engine.Config
	logger    *zap.Logger
	store     engine.WorkflowStore
	metrics   engine.Metrics
	providers []namedProvider
}

type namedProvider struct {
	name string
	p    provider.Provider
}

// Option configures the engine created by [New].
type Option func(*options)

// WithConfig sets the engine's tunable knobs.
func WithConfig(cfg engine.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithLogger sets a custom zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithStore sets the workflow store used by Execute. Without one, the
// engine keeps workflows in memory; seed them with [MemoryStore.Put].
func WithStore(st engine.WorkflowStore) Option {
	return func(o *options) { o.store = st }
}

// WithMetrics sets the execution telemetry sink.
func WithMetrics(m engine.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithProvider registers a pre-built AI provider under name.
func WithProvider(name string, p provider.Provider) Option {
	return func(o *options) {
		o.providers = append(o.providers, namedProvider{name, p})
	}
}

// WithOpenAI registers an OpenAI provider authenticated by apiKey.
func WithOpenAI(apiKey, model string) Option {
	return func(o *options) {
		o.providers = append(o.providers, namedProvider{"openai",
			provider.NewOpenAICompat(provider.OpenAICompatConfig{
				ProviderName: "openai",
				APIKey:       apiKey,
				BaseURL:      "https://api.openai.com",
				DefaultModel: model,
			}, o.logger)})
	}
}

// WithAnthropic registers an Anthropic provider authenticated by apiKey.
func WithAnthropic(apiKey, model string) Option {
	return func(o *options) {
		o.providers = append(o.providers, namedProvider{"anthropic",
			provider.NewAnthropic(provider.AnthropicConfig{
				APIKey:       apiKey,
				BaseURL:      "https://api.anthropic.com",
				DefaultModel: model,
			}, o.logger)})
	}
}

// WithStub registers the deterministic echo provider under "stub".
func WithStub() Option {
	return func(o *options) {
		o.providers = append(o.providers, namedProvider{"stub", provider.NewStub()})
	}
}

// New creates an engine backed by the static module catalog.
func New(opts ...Option) *engine.Engine {
	o := &options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	if o.store == nil {
		o.store = NewMemoryStore()
	}

	providers := provider.NewRegistry()
	for _, np := range o.providers {
		providers.Register(np.name, np.p)
	}

	reg := registry.NewWithCatalog(o.logger)
	return engine.New(o.cfg, reg, o.store, providers, o.metrics, o.logger)
}

// MemoryStore is a trivial in-process workflow store for embedding and
// examples. It satisfies engine.WorkflowStore only; durable persistence
// lives in the store package.
type MemoryStore struct {
	mu  sync.RWMutex
	wfs map[string]*types.Workflow
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{wfs: make(map[string]*types.Workflow)}
}

// Put stores or replaces a workflow.
func (m *MemoryStore) Put(wf *types.Workflow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wfs[wf.ID] = wf
}

// GetWorkflow returns a stored workflow by id.
func (m *MemoryStore) GetWorkflow(ctx context.Context, id string) (*types.Workflow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wf, ok := m.wfs[id]
	if !ok {
		return nil, types.NewError(types.ErrWorkflowNotFound, "workflow not found")
	}
	return wf, nil
}

package engine

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/flowgraph/provider"
	"github.com/BaSui01/flowgraph/registry"
	"github.com/BaSui01/flowgraph/types"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)

// AIModelExecutor runs AI Model modules: it renders the prompt template
// against the resolved input ports, dispatches to the configured
// provider with a bounded per-call timeout, and maps the response to the
// type's output port.
type AIModelExecutor struct {
	providers *provider.Registry
	timeout   time.Duration
	logger    *zap.Logger
}

// NewAIModelExecutor creates the AI Model category executor. timeout
// bounds each provider call; zero means 30 seconds.
func NewAIModelExecutor(providers *provider.Registry, timeout time.Duration, logger *zap.Logger) *AIModelExecutor {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AIModelExecutor{
		providers: providers,
		timeout:   timeout,
		logger:    logger.With(zap.String("component", "ai_executor")),
	}
}

// Category returns the category this executor serves.
func (e *AIModelExecutor) Category() types.Category { return types.CategoryAIModel }

// Execute performs one provider call for the module.
func (e *AIModelExecutor) Execute(ctx context.Context, inv *registry.Invocation) (map[string]any, error) {
	providerName, p, err := e.resolveProvider(inv)
	if err != nil {
		return nil, err
	}

	template, _ := inv.Config["prompt"].(string)
	prompt, err := renderPrompt(template, inv.Inputs)
	if err != nil {
		if e2, ok := err.(*types.Error); ok {
			return nil, e2.WithModule(inv.Module.ID)
		}
		return nil, err
	}

	req := &provider.Request{Prompt: prompt}
	if model, ok := inv.Config["model"].(string); ok {
		req.Model = model
	}
	if temp, ok := inv.Config["temperature"].(float64); ok {
		req.Temperature = temp
	}
	if maxTokens, ok := inv.Config["max_tokens"].(float64); ok {
		req.MaxTokens = int(maxTokens)
	}
	if size, ok := inv.Config["size"].(string); ok {
		req.Size = size
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	resp, err := p.Send(callCtx, req)
	if err != nil {
		if e2, ok := err.(*types.Error); ok {
			return nil, e2.WithModule(inv.Module.ID)
		}
		return nil, err
	}
	e.logger.Debug("provider call succeeded",
		zap.String("module_id", inv.Module.ID),
		zap.String("provider", providerName),
		zap.String("model", resp.Model),
		zap.Duration("duration", time.Since(start)),
	)

	port := inv.Type.DefaultOutputPort()
	if port == "" {
		port = "text"
	}
	if resp.ImageURL != "" {
		return map[string]any{port: resp.ImageURL}, nil
	}
	return map[string]any{port: resp.Text}, nil
}

// resolveProvider picks the provider for an invocation. A config that
// names no provider gets the registry default, so simple workflows can
// leave the field out entirely.
func (e *AIModelExecutor) resolveProvider(inv *registry.Invocation) (string, provider.Provider, error) {
	name, _ := inv.Config["provider"].(string)
	if name == "" {
		defName, p, err := e.providers.Default()
		if err != nil {
			return "", nil, types.NewError(types.ErrProviderUnavailable,
				"module names no provider and no default is configured").
				WithCause(err).WithModule(inv.Module.ID)
		}
		return defName, p, nil
	}
	p, ok := e.providers.Get(name)
	if !ok {
		return "", nil, types.NewError(types.ErrProviderUnavailable,
			fmt.Sprintf("provider %q is not configured", name)).
			WithModule(inv.Module.ID)
	}
	return name, p, nil
}

// renderPrompt substitutes {{port}} placeholders with input port values.
// A placeholder that names no port falls back to the single input when
// there is exactly one; otherwise the module fails rather than sending a
// half-rendered prompt to a paid API.
func renderPrompt(template string, inputs map[string]any) (string, error) {
	var missing string
	rendered := placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		name := placeholderRe.FindStringSubmatch(match)[1]
		if v, ok := inputs[name]; ok {
			return fmt.Sprint(v)
		}
		if len(inputs) == 1 {
			for _, v := range inputs {
				return fmt.Sprint(v)
			}
		}
		if missing == "" {
			missing = name
		}
		return match
	})
	if missing != "" {
		return "", types.NewError(types.ErrMissingInput,
			fmt.Sprintf("prompt placeholder {{%s}} matches no input port", missing))
	}
	return rendered, nil
}

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/flowgraph/types"
)

// OpenAICompatConfig configures an OpenAI-compatible provider. Vendors
// sharing the chat-completions wire format (OpenAI itself, DeepSeek, and
// friends) differ only in name, base URL, default model, and headers.
type OpenAICompatConfig struct {
	// ProviderName is the unique identifier for this provider.
	ProviderName string

	// APIKey authenticates against the vendor. May be empty when every
	// run supplies a credential override.
	APIKey string

	// BaseURL is the vendor's API root, e.g. "https://api.openai.com".
	BaseURL string

	// DefaultModel is used when the request does not name a model.
	DefaultModel string

	// Timeout is the HTTP client timeout. Defaults to 30s if zero.
	Timeout time.Duration

	// ChatEndpoint defaults to "/v1/chat/completions".
	ChatEndpoint string

	// ImageEndpoint defaults to "/v1/images/generations".
	ImageEndpoint string

	// ModelsEndpoint defaults to "/v1/models"; used by HealthCheck.
	ModelsEndpoint string

	// BuildHeaders optionally replaces the default Bearer auth headers.
	BuildHeaders func(req *http.Request, apiKey string)
}

// OpenAICompat is an HTTP client for OpenAI-compatible vendors. Requests
// carrying a Size are dispatched to the image generation endpoint, the
// rest to chat completions.
type OpenAICompat struct {
	cfg    OpenAICompatConfig
	client *http.Client
	logger *zap.Logger
}

// NewOpenAICompat creates a provider for an OpenAI-compatible vendor.
func NewOpenAICompat(cfg OpenAICompatConfig, logger *zap.Logger) *OpenAICompat {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ChatEndpoint == "" {
		cfg.ChatEndpoint = "/v1/chat/completions"
	}
	if cfg.ImageEndpoint == "" {
		cfg.ImageEndpoint = "/v1/images/generations"
	}
	if cfg.ModelsEndpoint == "" {
		cfg.ModelsEndpoint = "/v1/models"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAICompat{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(zap.String("component", "provider"), zap.String("provider", cfg.ProviderName)),
	}
}

// Name returns the provider name.
func (p *OpenAICompat) Name() string { return p.cfg.ProviderName }

func (p *OpenAICompat) endpoint(path string) string {
	return strings.TrimRight(p.cfg.BaseURL, "/") + path
}

func (p *OpenAICompat) buildHeaders(req *http.Request, apiKey string) {
	if p.cfg.BuildHeaders != nil {
		p.cfg.BuildHeaders(req, apiKey)
		return
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")
}

// HealthCheck verifies the provider is reachable.
func (p *OpenAICompat) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	start := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint(p.cfg.ModelsEndpoint), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.buildHeaders(httpReq, p.cfg.APIKey)

	resp, err := p.client.Do(httpReq)
	latency := time.Since(start)
	if err != nil {
		return &HealthStatus{Healthy: false, Latency: latency}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg := ReadErrorMessage(resp.Body)
		return &HealthStatus{Healthy: false, Latency: latency},
			fmt.Errorf("%s health check failed: status=%d msg=%s", p.cfg.ProviderName, resp.StatusCode, msg)
	}

	return &HealthStatus{Healthy: true, Latency: latency}, nil
}

// Send dispatches the request to the appropriate endpoint.
func (p *OpenAICompat) Send(ctx context.Context, req *Request) (*Response, error) {
	apiKey := resolveAPIKey(ctx, p.cfg.APIKey)
	if apiKey == "" {
		return nil, types.NewError(types.ErrMissingCredentials,
			fmt.Sprintf("no API key configured for provider %q", p.Name())).
			WithProvider(p.Name())
	}

	if req.Size != "" {
		return p.sendImage(ctx, req, apiKey)
	}
	return p.sendChat(ctx, req, apiKey)
}

type oaChatRequest struct {
	Model       string          `json:"model"`
	Messages    []oaChatMessage `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type oaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Created int64  `json:"created"`
	Choices []struct {
		Message oaChatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func (p *OpenAICompat) sendChat(ctx context.Context, req *Request, apiKey string) (*Response, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.DefaultModel
	}

	body := oaChatRequest{
		Model:       model,
		Messages:    []oaChatMessage{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	var oaResp oaChatResponse
	if err := p.post(ctx, p.cfg.ChatEndpoint, apiKey, body, &oaResp); err != nil {
		return nil, err
	}

	if len(oaResp.Choices) == 0 {
		return nil, types.NewError(types.ErrProviderError,
			"empty response from provider").WithProvider(p.Name())
	}

	resp := &Response{
		Provider: p.Name(),
		Model:    oaResp.Model,
		Text:     oaResp.Choices[0].Message.Content,
		Usage: Usage{
			PromptTokens:     oaResp.Usage.PromptTokens,
			CompletionTokens: oaResp.Usage.CompletionTokens,
			TotalTokens:      oaResp.Usage.TotalTokens,
		},
	}
	if oaResp.Created != 0 {
		resp.CreatedAt = time.Unix(oaResp.Created, 0)
	}
	return resp, nil
}

type oaImageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Size   string `json:"size,omitempty"`
	N      int    `json:"n"`
}

type oaImageResponse struct {
	Created int64 `json:"created"`
	Data    []struct {
		URL string `json:"url"`
	} `json:"data"`
}

func (p *OpenAICompat) sendImage(ctx context.Context, req *Request, apiKey string) (*Response, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.DefaultModel
	}

	body := oaImageRequest{Model: model, Prompt: req.Prompt, Size: req.Size, N: 1}

	var oaResp oaImageResponse
	if err := p.post(ctx, p.cfg.ImageEndpoint, apiKey, body, &oaResp); err != nil {
		return nil, err
	}

	if len(oaResp.Data) == 0 {
		return nil, types.NewError(types.ErrProviderError,
			"empty image response from provider").WithProvider(p.Name())
	}

	resp := &Response{Provider: p.Name(), Model: model, ImageURL: oaResp.Data[0].URL}
	if oaResp.Created != 0 {
		resp.CreatedAt = time.Unix(oaResp.Created, 0)
	}
	return resp, nil
}

func (p *OpenAICompat) post(ctx context.Context, path, apiKey string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(path), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	p.buildHeaders(httpReq, apiKey)

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return wrapTransportError(ctx, err, p.Name())
	}
	defer resp.Body.Close()

	p.logger.Debug("provider call completed",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode >= 400 {
		return MapHTTPError(resp.StatusCode, ReadErrorMessage(resp.Body), p.Name())
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return types.NewError(types.ErrProviderError, err.Error()).
			WithHTTPStatus(http.StatusBadGateway).WithRetryable(true).WithProvider(p.Name())
	}
	return nil
}

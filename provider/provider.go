package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/flowgraph/types"
)

// Request is one AI call as assembled by the AI Model executor: the
// rendered prompt plus the model parameters from the module's validated
// config.
type Request struct {
	Model       string            `json:"model"`
	Prompt      string            `json:"prompt"`
	Temperature float64           `json:"temperature,omitempty"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
	Size        string            `json:"size,omitempty"` // image generation only
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Usage reports token accounting when the vendor returns it.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// Response is the vendor's reply. Text carries completion output;
// ImageURL carries image generation output. Exactly one is set.
type Response struct {
	Provider  string    `json:"provider,omitempty"`
	Model     string    `json:"model"`
	Text      string    `json:"text,omitempty"`
	ImageURL  string    `json:"image_url,omitempty"`
	Usage     Usage     `json:"usage,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// HealthStatus reports provider reachability for routing decisions.
type HealthStatus struct {
	Healthy bool          `json:"healthy"`
	Latency time.Duration `json:"latency"`
}

// Provider is the single capability over distinct vendor APIs.
type Provider interface {
	// Send performs one synchronous call and returns the full response.
	Send(ctx context.Context, req *Request) (*Response, error)

	// HealthCheck performs a lightweight reachability probe.
	HealthCheck(ctx context.Context) (*HealthStatus, error)

	// Name returns the provider's unique identifier.
	Name() string
}

// MapHTTPError maps an upstream HTTP status to a typed provider error
// with the appropriate retryable flag. Shared by all HTTP providers.
func MapHTTPError(status int, msg string, provider string) *types.Error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return types.NewError(types.ErrMissingCredentials, msg).
			WithHTTPStatus(status).WithProvider(provider)
	case http.StatusTooManyRequests:
		return types.NewError(types.ErrProviderError, msg).
			WithHTTPStatus(status).WithRetryable(true).WithProvider(provider)
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return types.NewError(types.ErrProviderError, msg).
			WithHTTPStatus(status).WithRetryable(true).WithProvider(provider)
	default:
		return types.NewError(types.ErrProviderError, msg).
			WithHTTPStatus(status).WithRetryable(status >= 500).WithProvider(provider)
	}
}

// ReadErrorMessage extracts an error message from an upstream response
// body, preferring the common {"error": {"message": ...}} JSON envelope
// and falling back to the raw text.
func ReadErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(body)
	if err != nil {
		return "failed to read error response"
	}

	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		if errResp.Error.Type != "" {
			return fmt.Sprintf("%s (type: %s)", errResp.Error.Message, errResp.Error.Type)
		}
		return errResp.Error.Message
	}

	return strings.TrimSpace(string(data))
}

// wrapTransportError converts a client-side transport failure, including
// context deadline/cancel, into the engine's error taxonomy.
func wrapTransportError(ctx context.Context, err error, provider string) *types.Error {
	if ctx.Err() == context.DeadlineExceeded {
		return types.NewError(types.ErrTimeout, "provider call exceeded deadline").
			WithCause(err).WithRetryable(true).WithProvider(provider)
	}
	if ctx.Err() == context.Canceled {
		return types.NewError(types.ErrRunCancelled, "provider call cancelled").
			WithCause(err).WithProvider(provider)
	}
	return types.NewError(types.ErrProviderError, err.Error()).
		WithHTTPStatus(http.StatusBadGateway).WithRetryable(true).WithProvider(provider)
}

package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/flowgraph/types"
)

func TestAnthropic_Send(t *testing.T) {
	t.Parallel()

	var gotKey, gotVersion string
	var gotBody anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":    "msg_1",
			"model": "claude-3-5-sonnet",
			"content": []map[string]any{
				{"type": "text", "text": "part one "},
				{"type": "text", "text": "part two"},
			},
			"usage": map[string]any{"input_tokens": 10, "output_tokens": 5},
		})
	}))
	defer srv.Close()

	p := NewAnthropic(AnthropicConfig{
		APIKey: "sk-ant", BaseURL: srv.URL, DefaultModel: "claude-3-5-sonnet",
	}, zap.NewNop())

	resp, err := p.Send(context.Background(), &Request{Prompt: "hello", Temperature: 0.5})
	require.NoError(t, err)
	assert.Equal(t, "part one part two", resp.Text)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
	assert.Equal(t, "sk-ant", gotKey)
	assert.Equal(t, "2023-06-01", gotVersion)
	assert.Equal(t, "claude-3-5-sonnet", gotBody.Model)
	assert.Equal(t, 1024, gotBody.MaxTokens, "max_tokens is mandatory and must default")
	assert.Equal(t, "user", gotBody.Messages[0].Role)
}

func TestAnthropic_MissingCredentials(t *testing.T) {
	t.Parallel()

	p := NewAnthropic(AnthropicConfig{BaseURL: "http://unused.invalid"}, zap.NewNop())

	_, err := p.Send(context.Background(), &Request{Prompt: "hi"})
	require.Error(t, err)
	assert.Equal(t, types.ErrMissingCredentials, types.GetErrorCode(err))
}

func TestAnthropic_UpstreamError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "rate limited", "type": "rate_limit_error"},
		})
	}))
	defer srv.Close()

	p := NewAnthropic(AnthropicConfig{APIKey: "sk", BaseURL: srv.URL}, zap.NewNop())

	_, err := p.Send(context.Background(), &Request{Prompt: "hi"})
	require.Error(t, err)
	e, ok := err.(*types.Error)
	require.True(t, ok)
	assert.Equal(t, types.ErrProviderError, e.Code)
	assert.True(t, e.Retryable)
	assert.Contains(t, e.Message, "rate limited")
}

func TestAnthropic_EmptyContent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"content": []any{}})
	}))
	defer srv.Close()

	p := NewAnthropic(AnthropicConfig{APIKey: "sk", BaseURL: srv.URL}, zap.NewNop())

	_, err := p.Send(context.Background(), &Request{Prompt: "hi"})
	require.Error(t, err)
	assert.Equal(t, types.ErrProviderError, types.GetErrorCode(err))
}

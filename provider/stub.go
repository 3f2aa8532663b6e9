package provider

import (
	"context"
	"sync/atomic"
	"time"
)

// Stub is a deterministic in-process provider used in tests and demo
// configurations. By default it echoes the rendered prompt back as the
// response text; a custom Reply function can override that.
type Stub struct {
	// ProviderName defaults to "stub".
	ProviderName string

	// Reply computes the response for a request. Nil means echo.
	Reply func(req *Request) (*Response, error)

	calls atomic.Int64
}

// NewStub creates an echoing stub provider.
func NewStub() *Stub {
	return &Stub{}
}

// Name returns the provider name.
func (s *Stub) Name() string {
	if s.ProviderName == "" {
		return "stub"
	}
	return s.ProviderName
}

// Calls returns how many Send invocations the stub has served.
func (s *Stub) Calls() int64 { return s.calls.Load() }

// Send echoes the prompt, or delegates to Reply when set.
func (s *Stub) Send(ctx context.Context, req *Request) (*Response, error) {
	s.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, wrapTransportError(ctx, err, s.Name())
	}
	if s.Reply != nil {
		return s.Reply(req)
	}
	resp := &Response{Provider: s.Name(), Model: req.Model, Text: req.Prompt}
	if req.Size != "" {
		resp.Text = ""
		resp.ImageURL = "https://images.invalid/" + req.Size
	}
	return resp, nil
}

// HealthCheck always reports healthy.
func (s *Stub) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	return &HealthStatus{Healthy: true, Latency: time.Microsecond}, nil
}

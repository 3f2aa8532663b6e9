package provider

import (
	"context"
	"encoding/json"
)

type credentialOverrideKey struct{}

// CredentialOverride overrides a provider's API key for a single run.
// It travels only through context, never through API JSON, so stored
// per-user keys cannot be injected from the outside.
type CredentialOverride struct {
	APIKey string
}

func (c CredentialOverride) String() string {
	if c.APIKey == "" {
		return "CredentialOverride{}"
	}
	return "CredentialOverride{APIKey:***}"
}

// MarshalJSON masks the key so it never leaks through logs or telemetry.
func (c CredentialOverride) MarshalJSON() ([]byte, error) {
	type masked struct {
		APIKey string `json:"api_key,omitempty"`
	}
	out := masked{}
	if c.APIKey != "" {
		out.APIKey = "***"
	}
	return json.Marshal(out)
}

// WithCredentialOverride stores a credential override in ctx.
// An empty APIKey leaves ctx unchanged.
func WithCredentialOverride(ctx context.Context, c CredentialOverride) context.Context {
	if c.APIKey == "" {
		return ctx
	}
	return context.WithValue(ctx, credentialOverrideKey{}, c)
}

// CredentialOverrideFromContext reads a credential override from ctx.
func CredentialOverrideFromContext(ctx context.Context) (CredentialOverride, bool) {
	v := ctx.Value(credentialOverrideKey{})
	if v == nil {
		return CredentialOverride{}, false
	}
	c, ok := v.(CredentialOverride)
	return c, ok
}

// resolveAPIKey returns the key to use for one call: a context override
// wins over the configured key.
func resolveAPIKey(ctx context.Context, configured string) string {
	if c, ok := CredentialOverrideFromContext(ctx); ok && c.APIKey != "" {
		return c.APIKey
	}
	return configured
}

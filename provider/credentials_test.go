package provider

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialOverride_ContextRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := WithCredentialOverride(context.Background(), CredentialOverride{APIKey: "sk-user"})
	c, ok := CredentialOverrideFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "sk-user", c.APIKey)

	_, ok = CredentialOverrideFromContext(context.Background())
	assert.False(t, ok)
}

func TestCredentialOverride_EmptyKeyIgnored(t *testing.T) {
	t.Parallel()

	ctx := WithCredentialOverride(context.Background(), CredentialOverride{})
	_, ok := CredentialOverrideFromContext(ctx)
	assert.False(t, ok)
}

func TestResolveAPIKey_OverrideWins(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "sk-configured", resolveAPIKey(context.Background(), "sk-configured"))

	ctx := WithCredentialOverride(context.Background(), CredentialOverride{APIKey: "sk-user"})
	assert.Equal(t, "sk-user", resolveAPIKey(ctx, "sk-configured"))
}

func TestCredentialOverride_NeverLeaks(t *testing.T) {
	t.Parallel()

	c := CredentialOverride{APIKey: "sk-secret"}
	assert.NotContains(t, c.String(), "sk-secret")

	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-secret")
}

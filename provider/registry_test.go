package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	stub := NewStub()
	r.Register("stub", stub)

	got, ok := r.Get("stub")
	require.True(t, ok)
	assert.Same(t, Provider(stub), got)

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_Default(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	_, _, err := r.Default()
	require.Error(t, err)

	require.Error(t, r.SetDefault("stub"), "cannot default an unregistered provider")

	r.Register("stub", NewStub())
	require.NoError(t, r.SetDefault("stub"))

	name, p, err := r.Default()
	require.NoError(t, err)
	assert.Equal(t, "stub", name)
	assert.Equal(t, "stub", p.Name())
}

func TestRegistry_ListSorted(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register("openai", NewStub())
	r.Register("anthropic", NewStub())
	r.Register("stability", NewStub())

	assert.Equal(t, []string{"anthropic", "openai", "stability"}, r.List())
	assert.Equal(t, 3, r.Len())
}

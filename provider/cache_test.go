package provider

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewCache(rdb, CacheConfig{TTL: time.Minute}, zap.NewNop()), mr
}

func TestCache_RoundTrip(t *testing.T) {
	t.Parallel()

	cache, _ := newTestCache(t)
	ctx := context.Background()
	req := &Request{Model: "gpt-4-turbo", Prompt: "hello", Temperature: 0.7}

	_, ok := cache.Get(ctx, "openai", req)
	assert.False(t, ok)

	cache.Set(ctx, "openai", req, &Response{Provider: "openai", Text: "hi"})

	got, ok := cache.Get(ctx, "openai", req)
	require.True(t, ok)
	assert.Equal(t, "hi", got.Text)
}

func TestCache_KeyDiscriminates(t *testing.T) {
	t.Parallel()

	cache, _ := newTestCache(t)
	ctx := context.Background()

	cache.Set(ctx, "openai", &Request{Prompt: "hello"}, &Response{Text: "a"})

	_, ok := cache.Get(ctx, "openai", &Request{Prompt: "goodbye"})
	assert.False(t, ok, "different prompt must miss")

	_, ok = cache.Get(ctx, "anthropic", &Request{Prompt: "hello"})
	assert.False(t, ok, "different provider must miss")

	_, ok = cache.Get(ctx, "openai", &Request{Prompt: "hello", Temperature: 0.9})
	assert.False(t, ok, "different temperature must miss")
}

func TestCache_Expiry(t *testing.T) {
	t.Parallel()

	cache, mr := newTestCache(t)
	ctx := context.Background()
	req := &Request{Prompt: "hello"}

	cache.Set(ctx, "openai", req, &Response{Text: "hi"})
	mr.FastForward(2 * time.Minute)

	_, ok := cache.Get(ctx, "openai", req)
	assert.False(t, ok)
}

func TestCached_ServesFromCache(t *testing.T) {
	t.Parallel()

	cache, _ := newTestCache(t)
	stub := NewStub()
	p := NewCached(stub, cache)
	ctx := context.Background()
	req := &Request{Prompt: "hello"}

	first, err := p.Send(ctx, req)
	require.NoError(t, err)

	second, err := p.Send(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, int64(1), stub.Calls(), "second call must be served from cache")
}

func TestCached_ErrorsNotCached(t *testing.T) {
	t.Parallel()

	cache, _ := newTestCache(t)
	stub := NewStub()
	fail := true
	stub.Reply = func(req *Request) (*Response, error) {
		if fail {
			return nil, assert.AnError
		}
		return &Response{Text: "recovered"}, nil
	}
	p := NewCached(stub, cache)
	ctx := context.Background()
	req := &Request{Prompt: "hello"}

	_, err := p.Send(ctx, req)
	require.Error(t, err)

	fail = false
	resp, err := p.Send(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Text)
	assert.Equal(t, int64(2), stub.Calls())
}

package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CacheConfig configures the Redis-backed response cache.
type CacheConfig struct {
	// TTL bounds how long a cached response stays valid.
	// Defaults to 10 minutes.
	TTL time.Duration

	// KeyPrefix namespaces cache keys. Defaults to "flowgraph:provider".
	KeyPrefix string
}

// Cache memoizes provider responses in Redis, keyed by a digest of the
// request. Identical AI calls within the TTL are served locally, which
// keeps repeated editor test-runs cheap and deterministic.
type Cache struct {
	rdb    *redis.Client
	cfg    CacheConfig
	logger *zap.Logger
}

// NewCache creates a response cache on top of an existing Redis client.
func NewCache(rdb *redis.Client, cfg CacheConfig, logger *zap.Logger) *Cache {
	if cfg.TTL == 0 {
		cfg.TTL = 10 * time.Minute
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "flowgraph:provider"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		rdb:    rdb,
		cfg:    cfg,
		logger: logger.With(zap.String("component", "provider_cache")),
	}
}

// key digests the request fields that determine the response.
func (c *Cache) key(providerName string, req *Request) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%g|%d|%s",
		providerName, req.Model, req.Prompt, req.Temperature, req.MaxTokens, req.Size)
	return c.cfg.KeyPrefix + ":" + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached response for the request, if present.
func (c *Cache) Get(ctx context.Context, providerName string, req *Request) (*Response, bool) {
	data, err := c.rdb.Get(ctx, c.key(providerName, req)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		c.logger.Warn("cache entry corrupt, dropping", zap.Error(err))
		return nil, false
	}
	return &resp, true
}

// Set stores a response. Failures are logged, never surfaced: the cache
// is an optimization, not a dependency.
func (c *Cache) Set(ctx context.Context, providerName string, req *Request, resp *Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.Error(err))
		return
	}
	if err := c.rdb.Set(ctx, c.key(providerName, req), data, c.cfg.TTL).Err(); err != nil {
		c.logger.Warn("cache write failed", zap.Error(err))
	}
}

// Cached wraps a provider with the cache. Send consults the cache first
// and populates it on success; HealthCheck and Name pass through.
type Cached struct {
	inner Provider
	cache *Cache
}

// NewCached wraps a provider with response caching.
func NewCached(inner Provider, cache *Cache) *Cached {
	return &Cached{inner: inner, cache: cache}
}

// Name returns the wrapped provider's name.
func (p *Cached) Name() string { return p.inner.Name() }

// HealthCheck delegates to the wrapped provider.
func (p *Cached) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	return p.inner.HealthCheck(ctx)
}

// Send serves from cache when possible.
func (p *Cached) Send(ctx context.Context, req *Request) (*Response, error) {
	if resp, ok := p.cache.Get(ctx, p.inner.Name(), req); ok {
		return resp, nil
	}
	resp, err := p.inner.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	p.cache.Set(ctx, p.inner.Name(), req, resp)
	return resp, nil
}

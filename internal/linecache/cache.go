// Package linecache keeps fetched variations in Redis so stepping back into a
// line does not hit the backend again.
package linecache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/cheese-study/internal/navigator"
	"github.com/park285/cheese-study/internal/obslog"
)

const DefaultTTL = 24 * time.Hour

// Cache is a read-through navigator.Backend. Redis failures are logged and the
// request goes to the wrapped backend.
type Cache struct {
	rdb     *redis.Client
	backend navigator.Backend
	ttl     time.Duration
	logger  *zap.Logger
}

type Option func(*Cache)

func WithTTL(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(rdb *redis.Client, backend navigator.Backend, opts ...Option) *Cache {
	c := &Cache{rdb: rdb, backend: backend, ttl: DefaultTTL, logger: obslog.L()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dial connects to redisURL and checks the connection.
func Dial(ctx context.Context, redisURL string) (*redis.Client, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for line cache")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// Key is the Redis key of a variation.
func Key(ref navigator.VariationRef) string {
	id := strings.TrimSpace(ref.ID)
	if id == "" {
		id = "current"
	}
	return "study:line:" + string(ref.Kind) + ":" + id
}

func (c *Cache) FetchVariation(ctx context.Context, ref navigator.VariationRef) (*navigator.Variation, error) {
	if ref.IsLocal() {
		return c.backend.FetchVariation(ctx, ref)
	}
	v, err := c.load(ctx, ref)
	if err != nil {
		c.logger.Warn("line_cache_read_failed", zap.String("key", Key(ref)), zap.Error(err))
	}
	if v != nil {
		c.logger.Debug("line_cache_hit", zap.String("key", Key(ref)))
		return v, nil
	}
	return c.RefreshVariation(ctx, ref)
}

// RefreshVariation skips the cached copy and stores the fresh one.
func (c *Cache) RefreshVariation(ctx context.Context, ref navigator.VariationRef) (*navigator.Variation, error) {
	v, err := c.backend.RefreshVariation(ctx, ref)
	if err != nil {
		return nil, err
	}
	if ref.IsLocal() {
		return v, nil
	}
	if err := c.save(ctx, ref, v); err != nil {
		c.logger.Warn("line_cache_write_failed", zap.String("key", Key(ref)), zap.Error(err))
	}
	return v, nil
}

func (c *Cache) SubmitAnnotation(ctx context.Context, a navigator.Annotation) error {
	return c.backend.SubmitAnnotation(ctx, a)
}

// Invalidate drops the cached copy of ref.
func (c *Cache) Invalidate(ctx context.Context, ref navigator.VariationRef) error {
	return c.rdb.Del(ctx, Key(ref)).Err()
}

func (c *Cache) load(ctx context.Context, ref navigator.VariationRef) (*navigator.Variation, error) {
	raw, err := c.rdb.Get(ctx, Key(ref)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var v navigator.Variation
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	if len(v.Frames) == 0 {
		return nil, nil
	}
	return &v, nil
}

func (c *Cache) save(ctx context.Context, ref navigator.VariationRef, v *navigator.Variation) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, Key(ref), raw, c.ttl).Err()
}

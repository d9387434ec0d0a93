package engine

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/park285/Cheese-Web/internal/obslog"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cached memoizes another Analyzer's results in Redis. Redis failures fall
// back to the wrapped analyzer.
type Cached struct {
	inner Analyzer
	rdb   redis.UniversalClient
	ttl   time.Duration
}

func NewCached(inner Analyzer, rdb redis.UniversalClient, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cached{inner: inner, rdb: rdb, ttl: ttl}
}

func cacheKey(fen string, depth int) string {
	sum := sha1.Sum([]byte(fen))
	return fmt.Sprintf("analysis:%d:%s", depth, hex.EncodeToString(sum[:]))
}

func (c *Cached) Analyze(ctx context.Context, fen string, depth int) (Analysis, error) {
	key := cacheKey(fen, depth)
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var a Analysis
		if jerr := json.Unmarshal(raw, &a); jerr == nil {
			return a, nil
		}
		obslog.L().Warn("analysis_cache_corrupt", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		obslog.L().Warn("analysis_cache_get_failed", zap.String("key", key), zap.Error(err))
	}

	a, err := c.inner.Analyze(ctx, fen, depth)
	if err != nil {
		return Analysis{}, err
	}
	if payload, jerr := json.Marshal(a); jerr == nil {
		if serr := c.rdb.Set(ctx, key, payload, c.ttl).Err(); serr != nil {
			obslog.L().Warn("analysis_cache_set_failed", zap.String("key", key), zap.Error(serr))
		}
	}
	return a, nil
}

// Close closes the wrapped analyzer. The Redis client is owned by the caller.
func (c *Cached) Close() error { return c.inner.Close() }

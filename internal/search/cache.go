package search

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// Cache is the subset of the key-value store used to memoize search results.
type Cache interface {
	Get(key string) (string, error)
	Set(key, value string, ttl time.Duration) error
}

// CachedSearcher memoizes search results in a key-value cache. The cache is
// opportunistic: any cache failure falls through to the underlying searcher.
type CachedSearcher struct {
	inner Searcher
	cache Cache
	ttl   time.Duration
	log   *zap.Logger
}

// NewCachedSearcher wraps a Searcher with a TTL cache.
func NewCachedSearcher(inner Searcher, cache Cache, ttl time.Duration, log *zap.Logger) *CachedSearcher {
	return &CachedSearcher{inner: inner, cache: cache, ttl: ttl, log: log}
}

// Search returns cached results when present, otherwise delegates and stores
// the outcome. Only non-empty result sets are cached.
func (c *CachedSearcher) Search(ctx context.Context, query string, maxResults int) []Result {
	key := "search:" + query

	if raw, err := c.cache.Get(key); err == nil {
		var results []Result
		if err := json.Unmarshal([]byte(raw), &results); err == nil {
			if len(results) > maxResults {
				results = results[:maxResults]
			}
			return results
		}
	}

	results := c.inner.Search(ctx, query, maxResults)
	if len(results) > 0 {
		if raw, err := json.Marshal(results); err == nil {
			if err := c.cache.Set(key, string(raw), c.ttl); err != nil {
				c.log.Warn("caching search results", zap.Error(err))
			}
		}
	}
	return results
}

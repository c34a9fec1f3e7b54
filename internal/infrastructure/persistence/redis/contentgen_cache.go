package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/makerpath/progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GENERATED CONTENT CACHE
// ══════════════════════════════════════════════════════════════════════════════

// ContentCache caches generated tip/dialogue artifacts keyed by
// (account, unit index). The generation collaborator is slow and rate
// limited, so every successful response is kept for a long TTL.
type ContentCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewContentCache creates a ContentCache with the default TTL.
func NewContentCache(cache *Cache) *ContentCache {
	return &ContentCache{cache: cache, ttl: TTLGeneratedContent}
}

// WithTTL overrides the entry TTL.
func (c *ContentCache) WithTTL(ttl time.Duration) *ContentCache {
	c.ttl = ttl
	return c
}

// Get returns the cached artifact, or (nil, nil) on a miss. The raw blob is
// passed through untouched; the engine never interprets generated content.
func (c *ContentCache) Get(ctx context.Context, accountID shared.AccountID, unitIndex int) (json.RawMessage, error) {
	var blob json.RawMessage
	err := c.cache.Get(ctx, ContentKey(accountID.String(), unitIndex), &blob)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}
		return nil, err
	}
	return blob, nil
}

// Set stores a generated artifact.
func (c *ContentCache) Set(ctx context.Context, accountID shared.AccountID, unitIndex int, blob json.RawMessage) error {
	return c.cache.Set(ctx, ContentKey(accountID.String(), unitIndex), blob, c.ttl)
}

// Invalidate drops the cached artifact, forcing regeneration on next use.
func (c *ContentCache) Invalidate(ctx context.Context, accountID shared.AccountID, unitIndex int) error {
	return c.cache.Delete(ctx, ContentKey(accountID.String(), unitIndex))
}

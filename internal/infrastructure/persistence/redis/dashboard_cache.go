package redis

import (
	"context"
	"errors"
	"time"

	"github.com/makerpath/progress-hub/internal/application/query"
	"github.com/makerpath/progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DASHBOARD CACHE
// ══════════════════════════════════════════════════════════════════════════════

// DashboardCache caches the per-account dashboard read model. It implements
// query.DashboardCache and the invalidator the event handlers call after a
// completion changes any dashboard input.
type DashboardCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewDashboardCache creates a DashboardCache with the default TTL.
func NewDashboardCache(cache *Cache) *DashboardCache {
	return &DashboardCache{cache: cache, ttl: TTLDashboard}
}

// WithTTL overrides the entry TTL.
func (d *DashboardCache) WithTTL(ttl time.Duration) *DashboardCache {
	d.ttl = ttl
	return d
}

// Get returns the cached dashboard, or a miss error when absent.
func (d *DashboardCache) Get(ctx context.Context, accountID shared.AccountID) (*query.DashboardDTO, error) {
	var view query.DashboardDTO
	if err := d.cache.Get(ctx, DashboardKey(accountID.String()), &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Set stores the dashboard view.
func (d *DashboardCache) Set(ctx context.Context, accountID shared.AccountID, view *query.DashboardDTO) error {
	return d.cache.Set(ctx, DashboardKey(accountID.String()), view, d.ttl)
}

// InvalidateDashboard drops the account's cached view. Missing keys are not
// an error: invalidation races with expiry.
func (d *DashboardCache) InvalidateDashboard(ctx context.Context, accountID shared.AccountID) error {
	err := d.cache.Delete(ctx, DashboardKey(accountID.String()))
	if err != nil && !errors.Is(err, ErrCacheMiss) {
		return err
	}
	return nil
}

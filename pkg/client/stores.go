package client

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Sternrassler/orderbridge/pkg/cache"
)

const storesPath = "/stores"

// ListStores returns every store on the account. Results are cached when Redis
// is configured.
func (c *Client) ListStores(ctx context.Context, opts ...CallOption) ([]Store, error) {
	o := c.resolveOptions(c.config.GetTimeout, opts)

	var stores []Store
	if err := c.getCached(ctx, storesPath, o.timeout, &stores); err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	return stores, nil
}

// GetStore returns a single store by id.
func (c *Client) GetStore(ctx context.Context, storeID int64, opts ...CallOption) (*Store, error) {
	if storeID <= 0 {
		return nil, fmt.Errorf("store id must be positive (got %d)", storeID)
	}

	o := c.resolveOptions(c.config.GetTimeout, opts)

	var store Store
	if err := c.getCached(ctx, storesPath+"/"+strconv.FormatInt(storeID, 10), o.timeout, &store); err != nil {
		return nil, fmt.Errorf("get store %d: %w", storeID, err)
	}
	return &store, nil
}

// InvalidateStores drops cached store lookups so the next read hits the API.
func (c *Client) InvalidateStores(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	removed, err := c.cache.Invalidate(ctx, storesPath)
	if err != nil {
		return fmt.Errorf("invalidate stores: %w", err)
	}
	c.logger.Debug().Int("removed", removed).Msg("Store cache invalidated")
	return nil
}

// getCached serves a read from the response cache, falling back to the API and
// storing successful responses. Cache failures degrade to uncached reads.
func (c *Client) getCached(ctx context.Context, path string, timeout time.Duration, out any) error {
	if c.cache == nil {
		_, err := c.getJSON(ctx, path, nil, timeout, out)
		return err
	}

	key := cache.CacheKey{Endpoint: path, Account: c.account}

	entry, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		if err := entry.Decode(out); err == nil {
			c.logger.Debug().Str("path", path).Msg("Served from cache")
			return nil
		}
		c.logger.Warn().Str("path", path).Msg("Discarding undecodable cache entry")
	case !errors.Is(err, cache.ErrCacheMiss):
		c.logger.Warn().Err(err).Str("path", path).Msg("Cache get error")
	}

	resp, err := c.getJSON(ctx, path, nil, timeout, out)
	if err != nil {
		return err
	}

	fresh := cache.NewEntry(resp.StatusCode, resp.Header, resp.Body)
	if err := c.cache.Set(ctx, key, fresh); err != nil {
		c.logger.Warn().Err(err).Str("path", path).Msg("Failed to cache response")
	} else {
		c.logger.Debug().
			Str("path", path).
			Dur("ttl", fresh.TTL()).
			Msg("Cached response")
	}
	return nil
}

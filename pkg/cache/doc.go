// Package cache provides a Redis-backed response cache for slow-changing API
// entities such as stores.
//
// Entries expire according to the response's Expires header, or DefaultTTL
// when the header is absent. Expired entries are never served.
//
// # Basic Usage
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.CacheKey{Endpoint: "/stores/42", Account: "5d41402abc4b"}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the API, then
//		_ = manager.Set(ctx, key, cache.NewEntry(resp.StatusCode, resp.Header, resp.Body))
//	}
//
// # Metrics
//
//   - orderbridge_cache_hits_total{layer="redis"}
//   - orderbridge_cache_misses_total
//   - orderbridge_cache_bytes_written_total{layer="redis"}
//   - orderbridge_cache_errors_total{operation}
package cache

package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces every cache key in Redis.
const KeyPrefix = "orderbridge:cache"

// CacheKey represents a unique identifier for a cached API response.
type CacheKey struct {
	// Endpoint is the API path (e.g., "/stores/42")
	Endpoint string

	// QueryParams are the query parameters (e.g., {"showInactive": "true"})
	QueryParams url.Values

	// Account scopes the entry to one set of credentials. Empty means shared.
	Account string
}

// String generates a deterministic cache key string.
// Format: orderbridge:cache:endpoint:query1=val1:acct=abc
//
// Example:
//
//	orderbridge:cache:stores/42:acct=5d41402abc4b
func (k CacheKey) String() string {
	parts := []string{KeyPrefix}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	// Query params sorted for determinism
	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(k.QueryParams[key], ",")))
		}
	}

	if k.Account != "" {
		parts = append(parts, "acct="+k.Account)
	}

	return strings.Join(parts, ":")
}

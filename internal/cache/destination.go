package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Cache key prefixes and TTLs.
const (
	destinationKeyPrefix = "dest:"
	negCacheKeySuffix    = ":neg"

	// DefaultDestinationTTL is the TTL for cached destination URLs.
	DefaultDestinationTTL = 1 * time.Hour

	// NegativeCacheTTL is the TTL for negative cache entries, so a
	// (link, service) pair with no registered URL does not hit the
	// database on every click.
	NegativeCacheTTL = 5 * time.Minute
)

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

// destinationKey builds the cache key for a (smartlink, service) pair.
func destinationKey(smartlinkID, serviceName string) string {
	return destinationKeyPrefix + smartlinkID + ":" + serviceName
}

// GetDestination retrieves a cached destination URL.
// Returns ErrCacheMiss if not cached.
func (c *Cache) GetDestination(ctx context.Context, smartlinkID, serviceName string) (string, error) {
	result, err := c.client.Get(ctx, destinationKey(smartlinkID, serviceName)).Result()
	if err != nil {
		if isRedisNil(err) {
			return "", ErrCacheMiss
		}
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	return result, nil
}

// SetDestination caches a destination URL for a (smartlink, service) pair
// and clears any negative entry for it.
func (c *Cache) SetDestination(ctx context.Context, smartlinkID, serviceName, url string) error {
	key := destinationKey(smartlinkID, serviceName)

	if err := c.client.SetEx(ctx, key, url, DefaultDestinationTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache destination: %w", err)
	}

	c.client.Del(ctx, key+negCacheKeySuffix)
	return nil
}

// DeleteDestination removes a destination from cache, including any
// negative entry. Called when a smart link's platforms change.
func (c *Cache) DeleteDestination(ctx context.Context, smartlinkID, serviceName string) error {
	key := destinationKey(smartlinkID, serviceName)

	pipe := c.client.Pipeline()
	pipe.Del(ctx, key)
	pipe.Del(ctx, key+negCacheKeySuffix)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete destination from cache: %w", err)
	}
	return nil
}

// IsNegativelyCached checks whether a (smartlink, service) pair is known
// to have no registered URL.
func (c *Cache) IsNegativelyCached(ctx context.Context, smartlinkID, serviceName string) (bool, error) {
	key := destinationKey(smartlinkID, serviceName) + negCacheKeySuffix

	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check negative cache: %w", err)
	}
	return exists > 0, nil
}

// SetNegativeCache marks a (smartlink, service) pair as not found.
func (c *Cache) SetNegativeCache(ctx context.Context, smartlinkID, serviceName string) error {
	key := destinationKey(smartlinkID, serviceName) + negCacheKeySuffix

	if err := c.client.SetEx(ctx, key, "", NegativeCacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to set negative cache: %w", err)
	}
	return nil
}

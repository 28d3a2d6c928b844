// Package cache provides thread-safe in-memory caching with TTL for
// assembled routes, so repeated previews of the same trip do not re-hit
// the directions provider.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Cache is a thread-safe in-memory TTL cache
type Cache struct {
	entries map[string]*Entry
	mutex   sync.RWMutex
	logger  *zap.Logger
}

// Entry is a cached item with metadata
type Entry struct {
	Key       string    `json:"key"`
	Data      []byte    `json:"data"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// New creates an empty cache
func New(logger *zap.Logger) *Cache {
	return &Cache{
		entries: make(map[string]*Entry),
		logger:  logger,
	}
}

// TripKey builds the cache key for an origin/destination pair. Five
// decimals matches the polyline precision, so a re-request from the
// same fix hits the same entry.
func TripKey(originLat, originLng, destLat, destLng float64) string {
	return fmt.Sprintf("route:%.5f,%.5f:%.5f,%.5f", originLat, originLng, destLat, destLng)
}

// RouteKey builds the cache key for a route ID lookup
func RouteKey(id string) string {
	return "route:id:" + id
}

// Set stores data under key with the given TTL
func (c *Cache) Set(key string, data interface{}, ttl time.Duration) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data for cache: %w", err)
	}

	now := time.Now()
	entry := &Entry{
		Key:       key,
		Data:      jsonData,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	c.mutex.Lock()
	c.entries[key] = entry
	c.mutex.Unlock()
	return nil
}

// Get retrieves unexpired data into result. The bool reports a hit.
func (c *Cache) Get(key string, result interface{}) (bool, error) {
	c.mutex.RLock()
	entry, exists := c.entries[key]
	c.mutex.RUnlock()

	if !exists || time.Now().After(entry.ExpiresAt) {
		return false, nil
	}

	if err := json.Unmarshal(entry.Data, result); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached data: %w", err)
	}
	return true, nil
}

// IsStale reports whether key is missing or past expiration
func (c *Cache) IsStale(key string) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.entries[key]
	if !exists {
		return true
	}
	return time.Now().After(entry.ExpiresAt)
}

// Delete removes an entry
func (c *Cache) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.entries, key)
}

// Len returns the number of entries, expired included
func (c *Cache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.entries)
}

// CleanupStale removes all expired entries and reports how many
func (c *Cache) CleanupStale() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	var removed int
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// StartPeriodicCleanup runs CleanupStale on a ticker until ctx is done
func (c *Cache) StartPeriodicCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := c.CleanupStale(); removed > 0 {
					c.logger.Debug("cache cleanup removed stale entries", zap.Int("removed", removed))
				}
			}
		}
	}()
}

// Package cache holds static feature tables between requests. Callers own
// the cache handle and pass it to the components that need it.
package cache

import (
	"context"
	"sync"

	"github.com/jengzang/eventgraph-go/internal/metrics"
	"github.com/jengzang/eventgraph-go/internal/models"
)

// FeatureCache stores static feature tables by name.
type FeatureCache interface {
	// Get returns the table stored under key; found is false on a miss.
	Get(ctx context.Context, key string) (table *models.StaticFeatureTable, found bool, err error)
	Set(ctx context.Context, key string, table *models.StaticFeatureTable) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// MemoryCache is a process-local FeatureCache.
type MemoryCache struct {
	mu     sync.RWMutex
	tables map[string]*models.StaticFeatureTable
}

// NewMemoryCache creates an empty in-memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{tables: make(map[string]*models.StaticFeatureTable)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*models.StaticFeatureTable, bool, error) {
	c.mu.RLock()
	t, ok := c.tables[key]
	c.mu.RUnlock()
	if !ok {
		metrics.CacheMisses.WithLabelValues("memory").Inc()
		return nil, false, nil
	}
	metrics.CacheHits.WithLabelValues("memory").Inc()
	return t, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, table *models.StaticFeatureTable) error {
	c.mu.Lock()
	c.tables[key] = table
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.tables, key)
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Close() error {
	return nil
}

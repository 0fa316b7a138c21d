package cache

import (
	"sync"
	"time"

	"github.com/tradelens/tradelens/internal/models"
)

// ResultCache keeps recent analysis results in memory so repeated requests
// for the same symbol within the TTL do not refetch upstream data.
type ResultCache struct {
	mu      sync.RWMutex
	entries map[string]*cachedResult
	ttl     time.Duration
}

type cachedResult struct {
	result   *models.AnalysisResult
	cachedAt time.Time
}

func NewResultCache(ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ResultCache{
		entries: make(map[string]*cachedResult),
		ttl:     ttl,
	}
}

func (c *ResultCache) Get(symbol string) (*models.AnalysisResult, bool) {
	c.mu.RLock()
	entry, ok := c.entries[symbol]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Since(entry.cachedAt) > c.ttl {
		c.mu.Lock()
		delete(c.entries, symbol)
		c.mu.Unlock()
		return nil, false
	}
	return entry.result, true
}

func (c *ResultCache) Set(symbol string, result *models.AnalysisResult) {
	c.mu.Lock()
	c.entries[symbol] = &cachedResult{result: result, cachedAt: time.Now()}
	c.mu.Unlock()
}

// Invalidate drops one symbol's cached result.
func (c *ResultCache) Invalidate(symbol string) {
	c.mu.Lock()
	delete(c.entries, symbol)
	c.mu.Unlock()
}

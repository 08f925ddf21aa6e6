package analysis

import (
	"sync"

	"gobfda/domain/bfda"
	"gobfda/domain/core"
	"gobfda/internal/metrics"
)

type cacheKey struct {
	simulation core.SimulationID
	config     core.Hash
}

// Cache memoizes analysis summaries by simulation ID and analysis config.
// Results are immutable, so a summary never goes stale while its simulation
// exists. Returned summaries are shared and must not be modified.
type Cache struct {
	mu         sync.RWMutex
	entries    map[cacheKey]*bfda.AnalysisSummary
	maxEntries int
	metrics    *metrics.Metrics
}

// NewCache creates a cache holding at most maxEntries summaries (0 = unbounded).
func NewCache(maxEntries int, m *metrics.Metrics) *Cache {
	return &Cache{
		entries:    make(map[cacheKey]*bfda.AnalysisSummary),
		maxEntries: maxEntries,
		metrics:    m,
	}
}

// Analyze returns the cached summary or computes and stores it.
func (c *Cache) Analyze(result *bfda.SimulationResult, cfg bfda.AnalysisConfig) (*bfda.AnalysisSummary, error) {
	hash, err := core.HashJSON(cfg)
	if err != nil {
		return nil, err
	}
	key := cacheKey{simulation: result.ID, config: hash}

	c.mu.RLock()
	summary, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.record(cfg.Design, "hit")
		return summary, nil
	}

	summary, err = Analyze(result, cfg)
	if err != nil {
		return nil, err
	}
	c.record(cfg.Design, "miss")

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		for k := range c.entries {
			delete(c.entries, k)
			break
		}
	}
	c.entries[key] = summary
	return summary, nil
}

// DetermineSampleSize runs DetermineSampleSize with every candidate analysis
// going through the cache.
func (c *Cache) DetermineSampleSize(result *bfda.SimulationResult, cfg bfda.SSDConfig) (*bfda.SSDResult, error) {
	return determine(result, cfg, c.Analyze)
}

// Invalidate drops every summary of a simulation.
func (c *Cache) Invalidate(id core.SimulationID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.simulation == id {
			delete(c.entries, k)
		}
	}
}

// Len returns the number of cached summaries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) record(design bfda.AnalysisDesign, outcome string) {
	if c.metrics != nil {
		c.metrics.AnalysesTotal.WithLabelValues(string(design), outcome).Inc()
	}
}

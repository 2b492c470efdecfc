package rates

import (
	"context"
	"errors"
	"sync"
	"time"

	"kursbot/pkg/logx"
)

// ErrUnavailable is returned when no rate has ever been fetched successfully.
var ErrUnavailable = errors.New("rates: no rate available yet")

// Fetcher retrieves the current conversion factors, expressed as units of
// local currency per one unit of foreign currency.
type Fetcher interface {
	Fetch(ctx context.Context) (map[string]float64, error)
}

// Cache holds the most recent successfully fetched conversion factors.
//
// A failed refresh never clears prior values; stale factors are served until
// a refresh succeeds.
type Cache struct {
	fetcher Fetcher
	log     logx.Logger

	mu        sync.RWMutex
	factors   map[string]float64
	fetchedAt time.Time
}

func NewCache(fetcher Fetcher, log logx.Logger) *Cache {
	return &Cache{fetcher: fetcher, log: log}
}

// Refresh fetches fresh factors and atomically replaces the stored map.
// On failure the previous values stay untouched and the error is returned
// for the caller to log.
func (c *Cache) Refresh(ctx context.Context) error {
	factors, err := c.fetcher.Fetch(ctx)
	if err != nil {
		c.log.Warn("rate refresh failed, keeping last good values", logx.Err(err))
		return err
	}
	now := time.Now()
	c.mu.Lock()
	c.factors = factors
	c.fetchedAt = now
	c.mu.Unlock()
	c.log.Info("rates refreshed", logx.Int("currencies", len(factors)))
	return nil
}

// Get returns the last known factor for code, or false if that currency has
// never been fetched.
func (c *Cache) Get(code string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.factors[code]
	return v, ok
}

// Snapshot returns a copy of all factors plus the last refresh time.
// An empty map means nothing was ever fetched.
func (c *Cache) Snapshot() (map[string]float64, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]float64, len(c.factors))
	for k, v := range c.factors {
		out[k] = v
	}
	return out, c.fetchedAt
}

// EnsureFresh triggers a synchronous refresh only when nothing was ever
// cached. The fetcher's own HTTP timeout bounds the wait, so a slow upstream
// fails fast instead of stalling the caller.
func (c *Cache) EnsureFresh(ctx context.Context) {
	c.mu.RLock()
	empty := len(c.factors) == 0
	c.mu.RUnlock()
	if !empty {
		return
	}
	_ = c.Refresh(ctx)
}

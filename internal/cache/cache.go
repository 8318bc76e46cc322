// Package cache implements the bounded LRU sound cache: a mapping from
// caller-supplied source identity to a canonicalized sound.Sound, so the
// engine never resamples or requantizes the same input twice. Like the
// engine state it guards, a Cache is process-wide and relies on the
// control thread's single-threaded discipline rather than its own
// locking.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/psylab/cadence/internal/sound"
	"github.com/psylab/cadence/internal/timeval"
)

// DefaultCapacity is the cache size used when a caller does not override
// it.
const DefaultCapacity = 256

// Cache canonicalizes and memoizes Sound values under a caller-supplied
// key: an array's identity, a file path, or any other comparable value the
// caller considers stable. Eviction is strict LRU.
type Cache struct {
	rate timeval.Freq
	lru  *lru.Cache[any, sound.Sound]
}

// New builds a Cache targeting rateOut as the canonical engine sample
// rate, with the given capacity (DefaultCapacity if capacity <= 0).
func New(rateOut timeval.Freq, capacity int) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	var inner, err = lru.New[any, sound.Sound](capacity)
	if err != nil {
		return nil, err
	}

	return &Cache{rate: rateOut, lru: inner}, nil
}

// Get returns the canonicalized Sound for key, computing and inserting it
// via compute on a miss. compute supplies the raw, not-yet-canonical Sound;
// Get canonicalizes it to the cache's target rate before storing it, so
// every hit is already engine-native.
func (c *Cache) Get(key any, compute func() (sound.Sound, error)) (sound.Sound, []sound.Warning, error) {
	if c == nil || c.lru == nil {
		return sound.Sound{}, nil, ErrNotReady
	}

	if hit, ok := c.lru.Get(key); ok {
		return hit, nil, nil
	}

	var raw, err = compute()
	if err != nil {
		return sound.Sound{}, nil, err
	}

	var canon, warnings = raw.Canonicalize(c.rate)
	c.lru.Add(key, canon)

	return canon, warnings, nil
}

// Len reports the number of entries currently cached.
func (c *Cache) Len() int {
	if c == nil || c.lru == nil {
		return 0
	}

	return c.lru.Len()
}

// Flush evicts every entry. Called whenever the engine is reconfigured,
// since a new sample rate invalidates every prior canonicalization.
func (c *Cache) Flush(rateOut timeval.Freq) {
	if c == nil || c.lru == nil {
		return
	}

	c.rate = rateOut
	c.lru.Purge()
}

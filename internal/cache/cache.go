package cache

import (
	"context"
	"sync"
	"sync/atomic"

	"addonwatch/internal/model"
)

// TagOverallImpacts is signalled by every admin action that changes
// the underlying observation set.
const TagOverallImpacts = "overall-impacts"

// Rollups memoizes the overall impact aggregation behind a single
// entry. Replacement is a full-value atomic swap; readers always see
// either the old or the new complete slice, never a partial update.
// There is no TTL: staleness between an invalidation and the next read
// is expected.
type Rollups struct {
	loader func(context.Context) ([]model.AddonRollup, error)
	value  atomic.Value // []model.AddonRollup
	valid  atomic.Bool
	gen    atomic.Int64
	mu     sync.Mutex
}

func NewRollups(loader func(context.Context) ([]model.AddonRollup, error)) *Rollups {
	return &Rollups{loader: loader}
}

func (c *Rollups) Get(ctx context.Context) ([]model.AddonRollup, error) {
	if c.valid.Load() {
		if v := c.value.Load(); v != nil {
			return v.([]model.AddonRollup), nil
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid.Load() {
		if v := c.value.Load(); v != nil {
			return v.([]model.AddonRollup), nil
		}
	}
	gen := c.gen.Load()
	rollups, err := c.loader(ctx)
	if err != nil {
		return nil, err
	}
	if rollups == nil {
		rollups = []model.AddonRollup{}
	}
	c.value.Store(rollups)
	// An invalidation that landed while the loader ran makes this
	// snapshot already stale; serve it but leave the entry invalid so
	// the next read reloads.
	if c.gen.Load() == gen {
		c.valid.Store(true)
	}
	return rollups, nil
}

func (c *Rollups) Invalidate() {
	c.gen.Add(1)
	c.valid.Store(false)
}

type Invalidator interface {
	Invalidate()
}

// Tags routes explicit invalidation signals to registered cache
// entries, mirroring the tag-based revalidation hooks the admin
// actions call.
type Tags struct {
	mu    sync.RWMutex
	byTag map[string][]Invalidator
}

func NewTags() *Tags {
	return &Tags{byTag: make(map[string][]Invalidator)}
}

func (t *Tags) Register(tag string, inv Invalidator) {
	if tag == "" || inv == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byTag[tag] = append(t.byTag[tag], inv)
}

func (t *Tags) Invalidate(tag string) {
	t.mu.RLock()
	targets := t.byTag[tag]
	t.mu.RUnlock()
	for _, inv := range targets {
		inv.Invalidate()
	}
}

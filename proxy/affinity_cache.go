package proxy

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// defaultAffinityCacheSize bounds the weak-affinity cache the same way
// the teacher's cache/lru bounds its entry count: a fixed ceiling with
// least-recently-used eviction, just backed by the ecosystem's
// generic implementation instead of a hand-rolled container/list one.
const defaultAffinityCacheSize = 4096

// affinityCache maps a locator's correlation id to the last weak
// affinity a successful invocation deposited for it, so a freshly
// constructed Handler for the same target can start out already
// pinned instead of every call re-discovering the right node.
type affinityCache struct {
	lru *lru.Cache[string, any]
}

func newAffinityCache() *affinityCache {
	c, _ := lru.New[string, any](defaultAffinityCacheSize)
	return &affinityCache{lru: c}
}

func (c *affinityCache) get(l *Locator) (any, bool) {
	if c == nil || l == nil {
		return nil, false
	}
	return c.lru.Get(l.correlationID().String())
}

func (c *affinityCache) put(l *Locator, affinity any) {
	if c == nil || l == nil || affinity == nil {
		return
	}
	c.lru.Add(l.correlationID().String(), affinity)
}

// sharedAffinityCache is process-wide: every Handler consults and
// updates the same bounded cache, matching the original's semantics
// where weak affinity steers future invocations of the same proxy
// identity regardless of which Handler instance services them.
var sharedAffinityCache = newAffinityCache()

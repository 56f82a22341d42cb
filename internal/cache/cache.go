// Copyright 2011 The LevelDB-Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cache implements the refcounted block cache adapter of ยง4.3: a
// Lookup/Insert/Release/Value contract over a keyed store of byte blobs,
// with LRU eviction and a deleter callback run when a value's refcount
// drops to zero. Two independent Cache instances back the uncompressed and
// compressed tiers described in the data model; the cache package itself
// is agnostic to which tier it serves.
package cache

import (
	"container/list"
	"sync"
)

// Key identifies a cached block. Uniqueness invariant (ยง3): no two blocks
// across all open tables share a Key. FileKey is a per-reader prefix
// (derived from OS file identity if available, else cache-allocated) and
// Offset is the block's offset within that file.
type Key struct {
	FileKey uint64
	Offset  uint64
}

// Deleter is invoked exactly once, when a value's refcount reaches zero,
// whether that happens because of an LRU eviction or because the last
// Handle referencing it was released after removal.
type Deleter func(key Key, value interface{})

// Handle is a refcounted reference into the cache returned by Lookup or
// Insert. Every Handle obtained from either call must be passed to exactly
// one Release (ยง3 ownership invariants; ยง8 cache invariant).
type Handle struct {
	entry *entry
}

// Value returns the cached value the Handle refers to. It remains valid
// until the Handle is released.
func (h Handle) Value() interface{} {
	if h.entry == nil {
		return nil
	}
	return h.entry.value
}

// Valid reports whether the Handle refers to a live entry.
func (h Handle) Valid() bool {
	return h.entry != nil
}

type entry struct {
	key     Key
	value   interface{}
	charge  int64
	deleter Deleter
	refs    int32 // cache-table reference + one per outstanding Handle
	ll      *list.Element
	removed bool // unlinked from the table; last Release runs the deleter
}

// Cache is a single-tier, mutex-protected LRU cache of refcounted entries
// keyed by Key. The on-disk reader instantiates two of these: one for
// uncompressed blocks, one for compressed blocks (ยง3, ยง4.3).
//
// This is a deliberate simplification of the teacher's sharded Clock-PRO
// design (internal/cache/clockpro.go): a single mutex and a container/list
// LRU, sized by aggregate charge rather than by shard. The refcounted
// Handle contract — the part the reader's correctness actually depends on
// — is preserved exactly.
type Cache struct {
	mu       sync.Mutex
	maxSize  int64
	size     int64
	table    map[Key]*entry
	lru      *list.List // front = most recently used
	nextFile uint64
}

// New creates a Cache that evicts least-recently-used entries once the sum
// of their charges exceeds maxSize. A maxSize of 0 disables the cache:
// an entry with a positive charge is evicted before Insert returns (the
// returned Handle stays valid until released).
func New(maxSize int64) *Cache {
	return &Cache{
		maxSize: maxSize,
		table:   make(map[Key]*entry),
		lru:     list.New(),
	}
}

// NewFileKey allocates a cache-wide-unique file-key prefix for a reader
// that lacks a stable OS file identity to derive one from (ยง3 cache key).
func (c *Cache) NewFileKey() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextFile++
	return c.nextFile
}

// Lookup finds the entry for key, if present, and returns a Handle with
// its refcount incremented. queryID is accepted but unused by this
// implementation: it takes no part in equality or in eviction (ยง4.3, ยง13 decision).
func (c *Cache) Lookup(key Key, queryID int64) (Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.table[key]
	if !ok {
		return Handle{}, false
	}
	e.refs++
	c.lru.MoveToFront(e.ll)
	return Handle{entry: e}, true
}

// Insert adds value under key with the given eviction charge and deleter,
// returning a Handle that must be released. If an entry for key already
// exists — the concurrent-miss race of ยง4.3 — the existing entry wins and
// the caller's value is reported as a loser via ok=false: it is never
// inserted, its deleter (if any) runs before Insert returns, and the
// returned Handle refers to the existing entry.
func (c *Cache) Insert(key Key, queryID int64, value interface{}, charge int64, deleter Deleter) (h Handle, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, found := c.table[key]; found {
		existing.refs++
		c.lru.MoveToFront(existing.ll)
		if deleter != nil {
			deleter(key, value)
		}
		return Handle{entry: existing}, false
	}

	e := &entry{key: key, value: value, charge: charge, deleter: deleter, refs: 2}
	e.ll = c.lru.PushFront(e)
	c.table[key] = e
	c.size += charge

	c.evictLocked()
	return Handle{entry: e}, true
}

// Release drops the Handle's reference. When the refcount reaches zero —
// because the entry was evicted or explicitly removed while handles were
// outstanding — the deleter runs exactly once.
func (c *Cache) Release(h Handle) {
	if h.entry == nil {
		return
	}
	c.mu.Lock()
	e := h.entry
	e.refs--
	fire := e.refs == 0
	c.mu.Unlock()

	if fire && e.deleter != nil {
		e.deleter(e.key, e.value)
	}
}

// evictLocked evicts least-recently-used entries until the cache is back
// under budget. An entry with outstanding Handles is unlinked from the
// table immediately (so no new Lookup can find it) but its deleter is
// deferred to the last Release, matching the "loser entries are harmlessly
// released" contract of ยง4.3.
func (c *Cache) evictLocked() {
	for c.size > c.maxSize && c.lru.Len() > 0 {
		back := c.lru.Back()
		e := back.Value.(*entry)
		c.lru.Remove(back)
		delete(c.table, e.key)
		c.size -= e.charge
		e.removed = true
		e.refs-- // drop the cache table's own reference
		if e.refs == 0 && e.deleter != nil {
			e.deleter(e.key, e.value)
		}
	}
}

// Size returns the current aggregate charge of all resident entries.
func (c *Cache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

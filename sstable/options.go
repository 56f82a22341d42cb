// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found
// in the LICENSE file.

package sstable

import (
	"github.com/zmyer/blocktable/internal/base"
	"github.com/zmyer/blocktable/internal/cache"
)

// ReadTier selects whether an operation may perform file I/O.
type ReadTier int

const (
	// ReadAllTier permits reads from cache or file.
	ReadAllTier ReadTier = iota
	// BlockCacheTier ("no_io") permits only cache hits; a required block
	// that is not resident surfaces as ErrIncomplete.
	BlockCacheTier
)

// Options are the immutable, Open-time parameters of ยง6 "Reader inputs".
type Options struct {
	Comparer *base.Comparer
	// Split extracts a prefix from a user key; required for prefix
	// filtering and the hash-augmented index. Leave nil to disable both.
	Split base.Split

	// FilterPolicyName must match the policy name a filter block was
	// written under (the suffix after "fullfilter."/"filter."/
	// "fixedsizefilter." in the meta-index).
	FilterPolicyName string

	// Cache and CompressedCache back the two tiers of ยง4.3. Either may be
	// nil to disable that tier.
	Cache           *cache.Cache
	CompressedCache *cache.Cache

	CacheIndexAndFilterBlocks bool
	PrefetchIndexAndFilter    bool
	SkipFilters               bool
	HashIndexAllowCollision   bool

	Logger base.Logger
}

// EnsureDefaults fills unset fields with their defaults, returning o for
// chaining. A nil receiver yields a fresh default Options.
func (o *Options) EnsureDefaults() *Options {
	if o == nil {
		o = &Options{}
	}
	if o.Comparer == nil {
		o.Comparer = base.DefaultComparer
	}
	if o.Logger == nil {
		o.Logger = base.DefaultLogger
	}
	return o
}

// ReadOptions are the per-call parameters of ยง6 "Read options".
type ReadOptions struct {
	ReadTier        ReadTier
	FillCache       bool
	TotalOrderSeek  bool
	UseBloomOnScan  bool
	VerifyChecksums bool
	QueryID         int64
}

// DefaultReadOptions returns the baseline options: cache fills on read,
// Bloom filters consulted on scan, checksums verified.
func DefaultReadOptions() *ReadOptions {
	return &ReadOptions{
		FillCache:       true,
		UseBloomOnScan:  true,
		VerifyChecksums: true,
	}
}

// EnsureDefaults substitutes DefaultReadOptions() for a nil receiver;
// a non-nil ReadOptions is returned unmodified, since its zero-valued
// bools (e.g. an explicit FillCache=false) are meaningful.
func (o *ReadOptions) EnsureDefaults() *ReadOptions {
	if o == nil {
		return DefaultReadOptions()
	}
	return o
}

// noIO reports whether this call must avoid file I/O (ยง5 "Suspension
// points").
func (o *ReadOptions) noIO() bool {
	return o.ReadTier == BlockCacheTier
}

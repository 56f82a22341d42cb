// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found
// in the LICENSE file.

package sstable

import "github.com/zmyer/blocktable/internal/base"

// BloomFilterAwareIterator is the ยง4.8 wrapper used for a user-initiated
// Seek when filters are enabled and the filter shape is fixed-size. It is
// meant to be used only within a single hashed-prefix scan: a definitive
// miss on Seek means no key anywhere in the table matches, so the
// iterator is marked invalid without ever touching the two-level
// iterator's Next/Prev machinery.
//
// For any other filter shape this wrapper delegates Seek unchanged; it
// exists at all only because fixed-size filters are probed once per scan
// rather than once per data block (contrast with the block-based filter
// check inside Get).
type BloomFilterAwareIterator struct {
	r            *Reader
	opts         *ReadOptions
	inner        *twoLevelIterator
	filterUseful bool
}

func (r *Reader) newBloomFilterAwareIterator(opts *ReadOptions) (*BloomFilterAwareIterator, error) {
	inner, err := r.newTwoLevelIterator(opts)
	if err != nil {
		return nil, err
	}
	return &BloomFilterAwareIterator{r: r, opts: opts, inner: inner}, nil
}

// filterUsesFixedSize reports whether this wrapper should probe the
// fixed-size filter index before delegating a Seek.
func (b *BloomFilterAwareIterator) filterUsesFixedSize() bool {
	return b.opts.UseBloomOnScan && b.r.filterType == FilterTypeFixedSize && b.r.filterIndexReader != nil
}

// SeekGE moves to the first entry with key >= the target, first consulting
// the fixed-size filter index when applicable.
func (b *BloomFilterAwareIterator) SeekGE(key []byte) bool {
	b.filterUseful = false
	if b.filterUsesFixedSize() {
		filterKey := b.r.transformedKey(key)
		if !b.r.filterIndexReader.PrefixMayMatch(filterKey) {
			b.filterUseful = true
			b.inner.invalidate()
			return false
		}
	}
	return b.inner.SeekGE(key)
}

// SeekLT, First, Last, Next, Prev, Valid, Key, Value, Error, and Close all
// delegate unchanged: the filter probe in ยง4.8 applies only to Seek.
func (b *BloomFilterAwareIterator) SeekLT(key []byte) bool { return b.inner.SeekLT(key) }
func (b *BloomFilterAwareIterator) First() bool             { return b.inner.First() }
func (b *BloomFilterAwareIterator) Last() bool               { return b.inner.Last() }
func (b *BloomFilterAwareIterator) Next() bool                { return b.inner.Next() }
func (b *BloomFilterAwareIterator) Prev() bool                 { return b.inner.Prev() }
func (b *BloomFilterAwareIterator) Valid() bool                 { return b.inner.Valid() }
func (b *BloomFilterAwareIterator) Key() []byte                  { return b.inner.Key() }
func (b *BloomFilterAwareIterator) Value() []byte                 { return b.inner.Value() }
func (b *BloomFilterAwareIterator) Error() error                   { return b.inner.Error() }
func (b *BloomFilterAwareIterator) Close() error                    { return b.inner.Close() }

// transformedKey extracts the user key from an encoded internal key and
// applies the configured prefix extractor, or returns the user key
// unchanged when no extractor is configured.
func (r *Reader) transformedKey(encodedKey []byte) []byte {
	userKey := base.DecodeInternalKey(encodedKey).UserKey
	if r.split == nil {
		return userKey
	}
	return r.split(userKey)
}

// NewIterator always returns a *BloomFilterAwareIterator. Unless the filter
// is fixed-size and UseBloomOnScan is set, its SeekGE delegates straight to
// the inner two-level iterator.
func (r *Reader) NewIterator(opts *ReadOptions) (*BloomFilterAwareIterator, error) {
	opts = opts.EnsureDefaults()
	return r.newBloomFilterAwareIterator(opts)
}

// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found
// in the LICENSE file.

package sstable

import "github.com/zmyer/blocktable/internal/base"

// newDataBlockIterator is the ยง4.7 data-block iterator factory: decode the
// index value into a handle, resolve it through fetchBlock (cache tiers
// then file), and wrap it in a blockIter. The returned release must be
// called exactly once, whether or not err is nil, once the caller is done
// with the iterator (ยง3 "at most one data-block handle... released when
// the iterator is dropped").
func (r *Reader) newDataBlockIterator(indexValue []byte, opts *ReadOptions) (it *blockIter, release func(), err error) {
	h, n := DecodeBlockHandle(indexValue)
	if n == 0 {
		return nil, func() {}, base.CorruptionErrorf("blocktable: undecodable data block handle in index")
	}

	data, release, err := r.fetchBlock(h, opts)
	if err != nil {
		return nil, func() {}, err
	}

	it, ierr := newBlockIter(r.cmp, block(data))
	if ierr != nil {
		release()
		return nil, func() {}, ierr
	}
	return it, release, nil
}

// TestKeyInCache reports whether the data block that would hold userKey is
// currently resident in the uncompressed block cache, without affecting
// any refcount (ยง8 scenario 2; SPEC_FULL ยง12). It probes with a plain
// Lookup, which never inserts, and releases the handle it acquires at once;
// resolving the index may itself load the index block into the cache.
func (r *Reader) TestKeyInCache(userKey []byte) (bool, error) {
	if r.opts.Cache == nil {
		return false, nil
	}
	idx, releaseIdx, err := r.indexReader(DefaultReadOptions())
	if err != nil {
		return false, err
	}
	defer releaseIdx()

	searchKey := base.MakeSearchKey(userKey)
	encoded := make([]byte, searchKey.Size())
	searchKey.Encode(encoded)

	it := idx.NewIterator(true)
	if !it.SeekGE(encoded) {
		return false, nil
	}
	h, n := DecodeBlockHandle(it.Value())
	if n == 0 {
		return false, base.CorruptionErrorf("blocktable: undecodable data block handle in index")
	}

	cacheKey := dataBlockCacheKey(r.cacheKeyPrefix, h)
	ch, ok := r.opts.Cache.Lookup(cacheKey, 0)
	if !ok {
		return false, nil
	}
	r.opts.Cache.Release(ch)
	return true, nil
}

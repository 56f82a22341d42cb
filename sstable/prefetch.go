// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found
// in the LICENSE file.

package sstable

import "github.com/zmyer/blocktable/internal/base"

// Prefetch implements ยง4.10: it warms the block cache for every data block
// covering [begin, end), plus exactly one boundary block past end, so a
// subsequent scan of that range hits cache rather than the file. A nil
// begin starts at the first block; a nil end runs to the last block plus
// its own single boundary step (there is nothing past it to prefetch).
func (r *Reader) Prefetch(begin, end []byte) error {
	if begin != nil && end != nil && r.userCmp(begin, end) > 0 {
		return base.InvalidArgumentErrorf("blocktable: Prefetch begin > end")
	}
	if r.opts.Cache == nil && r.opts.CompressedCache == nil {
		// Nothing to warm without a cache configured; not an error, just
		// a no-op, matching ยง4.3's "either tier may be absent".
		return nil
	}

	opts := &ReadOptions{FillCache: true, TotalOrderSeek: true, VerifyChecksums: true}

	idx, release, err := r.indexReader(opts)
	if err != nil {
		return err
	}
	defer release()

	it := idx.NewIterator(true)
	var valid bool
	if begin != nil {
		searchKey := base.MakeSearchKey(begin)
		encoded := make([]byte, searchKey.Size())
		searchKey.Encode(encoded)
		valid = it.SeekGE(encoded)
	} else {
		valid = it.First()
	}

	for valid {
		userKey := base.DecodeInternalKey(it.Key()).UserKey
		pastEnd := end != nil && r.userCmp(userKey, end) >= 0

		if err := r.warmBlock(it.Value(), opts); err != nil && !base.IsIncompleteError(err) {
			return err
		}

		if pastEnd {
			// This is the one boundary block past end (ยง4.10): stop after
			// warming it, regardless of how much further the index runs.
			return nil
		}
		valid = it.Next()
	}
	return it.Error()
}

// warmBlock loads the data block named by an index entry's value through
// fetchBlock, populating the cache, then immediately releases the handle:
// Prefetch's purpose is solely to warm the cache for a later reader.
func (r *Reader) warmBlock(indexValue []byte, opts *ReadOptions) error {
	h, n := DecodeBlockHandle(indexValue)
	if n == 0 {
		return base.CorruptionErrorf("blocktable: undecodable data block handle in index")
	}
	_, release, err := r.fetchBlock(h, opts)
	if err != nil {
		return err
	}
	release()
	return nil
}

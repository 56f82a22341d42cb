// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found
// in the LICENSE file.

package sstable

import (
	"bytes"

	"github.com/zmyer/blocktable/internal/base"
)

// Get implements ยง4.9 point lookup: a non-block-based filter check up
// front, then index-guided descent into exactly one data block (correct
// given the index invariant that the found entry's key is the first one
// >= the search key), with a block-based filter check on that one block
// when applicable.
//
// It returns base.ErrNotFound when the key is absent, and ErrIncomplete
// (wrapping the no_io semantics of ยง5) when a required block was not
// cache-resident and opts forbids I/O — the caller should treat that as
// "may exist", matching get_context.MarkKeyMayExist in the original.
func (r *Reader) Get(userKey []byte, opts *ReadOptions) (value []byte, err error) {
	opts = opts.EnsureDefaults()
	searchKey := base.MakeSearchKey(userKey)
	encoded := make([]byte, searchKey.Size())
	searchKey.Encode(encoded)

	if !r.opts.SkipFilters && r.filterType != FilterTypeNone && r.filterType != FilterTypeBlockBased {
		mayMatch, ferr := r.nonBlockBasedKeyMayMatch(userKey, opts)
		if ferr != nil {
			return nil, ferr
		}
		if !mayMatch {
			return nil, base.ErrNotFound
		}
	}

	idx, releaseIdx, err := r.indexReader(opts)
	if err != nil {
		return nil, err
	}
	defer releaseIdx()

	it := idx.NewIterator(opts.TotalOrderSeek)
	if !it.SeekGE(encoded) {
		return nil, base.ErrNotFound
	}

	h, n := DecodeBlockHandle(it.Value())
	if n == 0 {
		return nil, base.CorruptionErrorf("blocktable: undecodable data block handle in index")
	}

	if r.filterType == FilterTypeBlockBased {
		fr, releaseFilter, ferr := r.filterReader(opts)
		if ferr != nil {
			return nil, ferr
		}
		filterKey := r.transformedKey(encoded)
		mayMatch := fr.MayMatchAtOffset(filterKey, h.Offset)
		releaseFilter()
		if !mayMatch {
			// ยง4.9: a block-based miss stops the entire Get, since this
			// filter covers exactly the one data block the index landed
			// on and the comparator guarantees no later block can hold
			// an earlier-sorting duplicate of this key.
			return nil, base.ErrNotFound
		}
	}

	data, releaseData, derr := r.newDataBlockIterator(it.Value(), opts)
	if derr != nil {
		if base.IsIncompleteError(derr) {
			return nil, derr
		}
		return nil, derr
	}
	defer releaseData()

	if !data.SeekGE(encoded) {
		return nil, base.ErrNotFound
	}

	got := base.DecodeInternalKey(data.Key())
	if !bytes.Equal(got.UserKey, userKey) {
		return nil, base.ErrNotFound
	}
	switch got.Kind() {
	case base.InternalKeyKindDelete:
		return nil, base.ErrNotFound
	default:
		return append([]byte(nil), data.Value()...), nil
	}
}

// nonBlockBasedKeyMayMatch implements the whole-key-and-prefix check of
// ยง4.9 step 1 for full and fixed-size filters.
func (r *Reader) nonBlockBasedKeyMayMatch(userKey []byte, opts *ReadOptions) (bool, error) {
	if r.filterType == FilterTypeFixedSize {
		filterKey := userKey
		if r.split != nil {
			filterKey = r.split(userKey)
		}
		return r.filterIndexReader.PrefixMayMatchTier(filterKey, opts)
	}

	fr, release, err := r.filterReader(opts)
	if err != nil {
		return false, err
	}
	defer release()

	if r.Properties.WholeKeyFiltering {
		if !fr.MayMatch(userKey) {
			return false, nil
		}
	}
	if r.Properties.PrefixFiltering && r.split != nil {
		if !fr.PrefixMayMatch(r.split(userKey)) {
			return false, nil
		}
	}
	return true, nil
}

// PrefixMayMatch is the ยง4.9 analytic core: given the comparator
// properties documented there, it reports whether any key with the given
// prefix might be present, without performing I/O (it forces
// BlockCacheTier regardless of the reader's own defaults).
func (r *Reader) PrefixMayMatch(prefix []byte) (bool, error) {
	noIO := &ReadOptions{ReadTier: BlockCacheTier, VerifyChecksums: true}

	if !r.opts.SkipFilters && r.filterType != FilterTypeNone && r.filterType != FilterTypeBlockBased {
		mayMatch, err := r.nonBlockBasedPrefixMayMatch(prefix, noIO)
		if err != nil {
			if base.IsIncompleteError(err) {
				return true, nil
			}
			return false, err
		}
		if !mayMatch {
			return false, nil
		}
	}

	idx, release, err := r.indexReader(noIO)
	if err != nil {
		if base.IsIncompleteError(err) {
			return true, nil
		}
		return false, err
	}
	defer release()

	searchKey := base.MakeSearchKey(prefix)
	encoded := make([]byte, searchKey.Size())
	searchKey.Encode(encoded)

	it := idx.NewIterator(false)
	if !it.SeekGE(encoded) {
		return true, nil
	}

	gotUserKey := base.DecodeInternalKey(it.Key()).UserKey
	if bytes.HasPrefix(gotUserKey, prefix) {
		return true, nil
	}

	if r.filterType != FilterTypeBlockBased {
		return true, nil
	}

	h, n := DecodeBlockHandle(it.Value())
	if n == 0 {
		return false, base.CorruptionErrorf("blocktable: undecodable data block handle in index")
	}
	fr, release2, err := r.filterReader(noIO)
	if err != nil {
		if base.IsIncompleteError(err) {
			return true, nil
		}
		return false, err
	}
	defer release2()
	return fr.MayMatchAtOffset(prefix, h.Offset), nil
}

func (r *Reader) nonBlockBasedPrefixMayMatch(prefix []byte, opts *ReadOptions) (bool, error) {
	if r.filterType == FilterTypeFixedSize {
		return r.filterIndexReader.PrefixMayMatchTier(prefix, opts)
	}
	fr, release, err := r.filterReader(opts)
	if err != nil {
		return false, err
	}
	defer release()
	return fr.PrefixMayMatch(prefix), nil
}

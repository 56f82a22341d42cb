// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found
// in the LICENSE file.

package sstable

import (
	"bytes"
	"encoding/binary"

	"github.com/zmyer/blocktable/bloom"
	"github.com/zmyer/blocktable/internal/base"
)

// IndexReader is the common contract of ยง4.4: produce an iterator over the
// data-block index, optionally honoring totalOrderSeek, and report the
// reader's approximate in-memory footprint.
type IndexReader interface {
	NewIterator(totalOrderSeek bool) *blockIter
	ApproximateMemoryUsage() int
}

// binarySearchIndexReader is the plain ยง4.4 variant: its iterator is the
// underlying block iterator, with no auxiliary structure.
type binarySearchIndexReader struct {
	cmp base.Compare
	b   block
}

func newBinarySearchIndexReader(cmp base.Compare, b block) *binarySearchIndexReader {
	return &binarySearchIndexReader{cmp: cmp, b: b}
}

func (r *binarySearchIndexReader) NewIterator(totalOrderSeek bool) *blockIter {
	it, err := newBlockIter(r.cmp, r.b)
	if err != nil {
		it = &blockIter{cmp: r.cmp, err: err}
	}
	return it
}

func (r *binarySearchIndexReader) ApproximateMemoryUsage() int {
	return len(r.b)
}

// prefixRange is the restart-point range within the index block that may
// hold an entry whose user key has a given prefix.
type prefixRange struct {
	startRestart, endRestart int
}

// hashIndexAux is the prefix-to-restart-range map built from the
// "rocksdb.hashindex.prefixes.metadata" meta-block. Its on-disk format is
// not specified by any example in the retrieval pack (the builder that
// writes it is part of the out-of-scope write path), so this reader
// defines and documents its own compact format: an ordinary block whose
// entries are (prefix bytes) -> (varint startRestart, varint endRestart).
type hashIndexAux struct {
	ranges map[string]prefixRange
}

func parseHashIndexAux(b block) (*hashIndexAux, error) {
	it, err := newBlockIter(bytes.Compare, b)
	if err != nil {
		return nil, err
	}
	aux := &hashIndexAux{ranges: make(map[string]prefixRange)}
	for valid := it.First(); valid; valid = it.Next() {
		val := it.Value()
		start, n := binary.Uvarint(val)
		if n <= 0 {
			return nil, base.CorruptionErrorf("blocktable: hash index metadata entry undecodable")
		}
		val = val[n:]
		end, m := binary.Uvarint(val)
		if m <= 0 {
			return nil, base.CorruptionErrorf("blocktable: hash index metadata entry undecodable")
		}
		aux.ranges[string(it.Key())] = prefixRange{int(start), int(end)}
	}
	if it.Error() != nil {
		return nil, it.Error()
	}
	return aux, nil
}

// hashIndexAuxDense is the "denser alternative structure with probabilistic
// membership" named by ยง4.4's hash_index_allow_collision option: instead of
// an exact string-keyed map, prefixes are hashed into a fixed bucket array
// and colliding prefixes have their restart ranges unioned into the shared
// bucket. A lookup therefore never misses a range that a prefix truly needs
// (the union always covers it), but an unrelated prefix that happens to hash
// into an occupied bucket gets an overly wide, merely-slower-not-wrong
// range — the "probabilistic" part of the name. This is smaller than the
// exact map since it's one fixed-size array rather than one entry per
// distinct prefix.
type hashIndexAuxDense struct {
	buckets []prefixRange // zero value (0,0) with ok recorded in present
	present []bool
}

func hashIndexBucket(prefix []byte, numBuckets int) int {
	return int(bloom.Hash(prefix) % uint32(numBuckets))
}

// buildHashIndexAuxDense folds an exact hashIndexAux down into a bucketed
// structure, one bucket per distinct prefix the exact map saw (a 1:1 ratio
// is the densest case; in practice many prefixes share a bucket).
func buildHashIndexAuxDense(aux *hashIndexAux) *hashIndexAuxDense {
	numBuckets := len(aux.ranges)
	if numBuckets == 0 {
		numBuckets = 1
	}
	d := &hashIndexAuxDense{
		buckets: make([]prefixRange, numBuckets),
		present: make([]bool, numBuckets),
	}
	for prefix, rng := range aux.ranges {
		b := hashIndexBucket([]byte(prefix), numBuckets)
		if !d.present[b] {
			d.buckets[b] = rng
			d.present[b] = true
			continue
		}
		// Collision: union the ranges so the bucket still covers every
		// prefix that hashed into it.
		cur := d.buckets[b]
		if rng.startRestart < cur.startRestart {
			cur.startRestart = rng.startRestart
		}
		if rng.endRestart > cur.endRestart {
			cur.endRestart = rng.endRestart
		}
		d.buckets[b] = cur
	}
	return d
}

func (d *hashIndexAuxDense) lookup(prefix []byte) (prefixRange, bool) {
	b := hashIndexBucket(prefix, len(d.buckets))
	if !d.present[b] {
		return prefixRange{}, false
	}
	return d.buckets[b], true
}

// hashIndexReader is the ยง4.4 hash-augmented variant. When the auxiliary
// is present and totalOrderSeek is false, its iterator restricts the
// binary search's restart-point range using the prefix bucket; otherwise
// it falls back, silently, to the plain binary-search iterator.
type hashIndexReader struct {
	binary *binarySearchIndexReader
	split  base.Split
	aux    *hashIndexAux     // nil if construction failed or unavailable
	dense  *hashIndexAuxDense // non-nil only when allowCollision is set and aux built successfully
}

// newHashIndexReader builds the hash-augmented reader. A nil split (no
// prefix extractor configured) or a failed aux parse degrades to a plain
// binary-search reader, logged but not fatal, per ยง4.4's fallback rule.
// allowCollision selects the denser, probabilistic-membership variant
// (ยง4.4's hash_index_allow_collision) over the exact prefix map.
func newHashIndexReader(cmp base.Compare, indexBlock block, auxBlock block, split base.Split, logger base.Logger, allowCollision bool) *hashIndexReader {
	r := &hashIndexReader{binary: newBinarySearchIndexReader(cmp, indexBlock), split: split}
	if split == nil || auxBlock == nil {
		return r
	}
	aux, err := parseHashIndexAux(auxBlock)
	if err != nil {
		logger.Errorf("blocktable: hash index construction failed, falling back to binary search: %v", err)
		return r
	}
	r.aux = aux
	if allowCollision {
		r.dense = buildHashIndexAuxDense(aux)
	}
	return r
}

// NewIterator returns the binary-search iterator, narrowed to the restart
// range the key's prefix maps to whenever that's available: totalOrderSeek
// is false, and either the exact or (if hash_index_allow_collision is on)
// the dense auxiliary successfully parsed. Otherwise it's the plain
// full-range iterator, per ยง4.4's fallback rule.
func (r *hashIndexReader) NewIterator(totalOrderSeek bool) *blockIter {
	it := r.binary.NewIterator(totalOrderSeek)
	if totalOrderSeek || (r.aux == nil && r.dense == nil) {
		return it
	}
	it.seekRestrict = func(key []byte) (lo, hi int, ok bool) {
		ik := base.DecodeInternalKey(key)
		rng, ok := r.seekRestrictedByPrefix(ik.UserKey)
		if !ok {
			return 0, 0, false
		}
		return rng.startRestart, rng.endRestart, true
	}
	return it
}

// seekRestrictedByPrefix returns the narrowed restart range for a given user
// key's prefix, when available. Its caller is NewIterator's seekRestrict
// closure, through which the index lookups of Get and PrefixMayMatch reach
// it. ok is false whenever the plain full-range search applies.
func (r *hashIndexReader) seekRestrictedByPrefix(userKey []byte) (rng prefixRange, ok bool) {
	if r.split == nil {
		return prefixRange{}, false
	}
	prefix := r.split(userKey)
	if r.dense != nil {
		return r.dense.lookup(prefix)
	}
	if r.aux == nil {
		return prefixRange{}, false
	}
	rng, ok = r.aux.ranges[string(prefix)]
	return rng, ok
}

func (r *hashIndexReader) ApproximateMemoryUsage() int {
	n := r.binary.ApproximateMemoryUsage()
	if r.aux != nil {
		for k := range r.aux.ranges {
			n += len(k) + 16
		}
	}
	if r.dense != nil {
		n += len(r.dense.buckets) * (16 + 1)
	}
	return n
}

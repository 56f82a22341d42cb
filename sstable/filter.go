// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found
// in the LICENSE file.

package sstable

import (
	"encoding/binary"

	"github.com/zmyer/blocktable/bloom"
	"github.com/zmyer/blocktable/internal/base"
)

// FilterReader is the ยง4.5 common contract across the three filter
// shapes. MayMatchAtOffset is meaningful only for block-based filters;
// the other two variants ignore the offset.
type FilterReader interface {
	// MayMatch reports whether key might be present anywhere in the table.
	MayMatch(key []byte) bool
	// MayMatchAtOffset reports whether key might be present in the data
	// block beginning at blockOffset. Only the block-based variant uses
	// blockOffset; others delegate to MayMatch.
	MayMatchAtOffset(key []byte, blockOffset uint64) bool
	// PrefixMayMatch reports whether any key with this prefix might be
	// present. Must not perform I/O for fixed-size filters once the
	// filter index is resident (ยง8 PrefixMayMatch property).
	PrefixMayMatch(prefix []byte) bool
	ApproximateMemoryUsage() int
}

// notMatchingFilter is the ยง9 "not-matching" sentinel: a constant of the
// same FilterReader variant that definitively rules out every key with
// zero I/O, used when a fixed-size filter index is exhausted during a
// lookup (ยง4.5, ยง8 scenario 5).
type notMatchingFilter struct{}

func (notMatchingFilter) MayMatch([]byte) bool                  { return false }
func (notMatchingFilter) MayMatchAtOffset([]byte, uint64) bool   { return false }
func (notMatchingFilter) PrefixMayMatch([]byte) bool             { return false }
func (notMatchingFilter) ApproximateMemoryUsage() int            { return 0 }

var sentinelNotMatching FilterReader = notMatchingFilter{}

// fullFilterReader wraps a single Bloom filter covering every key in the
// table. The offset parameter of MayMatchAtOffset is irrelevant for this
// shape and simply ignored.
type fullFilterReader struct {
	data []byte
}

func newFullFilterReader(data []byte) *fullFilterReader {
	return &fullFilterReader{data: data}
}

func (r *fullFilterReader) MayMatch(key []byte) bool                { return bloom.MayContain(r.data, key) }
func (r *fullFilterReader) MayMatchAtOffset(key []byte, _ uint64) bool { return r.MayMatch(key) }
func (r *fullFilterReader) PrefixMayMatch(prefix []byte) bool       { return bloom.MayContain(r.data, prefix) }
func (r *fullFilterReader) ApproximateMemoryUsage() int             { return len(r.data) }

// blockBasedFilterReader holds one Bloom filter per data block. Its
// on-disk layout (the builder that writes it is out of scope, so this is
// this reader's own documented format rather than a transcription of an
// upstream one):
//
//	[filter bytes for block 0][filter bytes for block 1]...[filter bytes for block k-1]
//	[k * 8 bytes: block offsets, u64 little-endian, ascending]
//	[k * 4 bytes: filter start offsets within the filter-bytes region, u32 little-endian]
//	[4 bytes: k, u32 little-endian]
//
// filter i spans [filterStart[i], filterStart[i+1]) where filterStart[k]
// is implicitly the length of the filter-bytes region.
type blockBasedFilterReader struct {
	filterData   []byte
	blockOffsets []uint64
	filterStarts []uint32
}

func newBlockBasedFilterReader(data []byte) (*blockBasedFilterReader, error) {
	if len(data) < 4 {
		return nil, base.CorruptionErrorf("blocktable: block-based filter block too short")
	}
	k := int(binary.LittleEndian.Uint32(data[len(data)-4:]))
	trailer := 4 + k*8 + k*4
	if len(data) < trailer {
		return nil, base.CorruptionErrorf("blocktable: block-based filter block trailer overruns block")
	}
	filterDataLen := len(data) - trailer
	r := &blockBasedFilterReader{
		filterData:   data[:filterDataLen],
		blockOffsets: make([]uint64, k),
		filterStarts: make([]uint32, k+1),
	}
	off := filterDataLen
	for i := 0; i < k; i++ {
		r.blockOffsets[i] = binary.LittleEndian.Uint64(data[off:])
		off += 8
	}
	for i := 0; i < k; i++ {
		r.filterStarts[i] = binary.LittleEndian.Uint32(data[off:])
		off += 4
	}
	r.filterStarts[k] = uint32(filterDataLen)
	return r, nil
}

// MayMatch is unsupported without a block offset for this shape; per ยง4.5,
// "probes without offset are unsupported" for block-based filters, so this
// conservatively returns true (never a false negative) rather than
// matching nothing.
func (r *blockBasedFilterReader) MayMatch(key []byte) bool { return true }

func (r *blockBasedFilterReader) MayMatchAtOffset(key []byte, blockOffset uint64) bool {
	lo, hi := 0, len(r.blockOffsets)-1
	idx := -1
	for lo <= hi {
		mid := (lo + hi) / 2
		switch {
		case r.blockOffsets[mid] == blockOffset:
			idx = mid
			lo = hi + 1
		case r.blockOffsets[mid] < blockOffset:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	if idx < 0 {
		return true // unknown block offset: fail open rather than false-negative
	}
	filter := r.filterData[r.filterStarts[idx]:r.filterStarts[idx+1]]
	return bloom.MayContain(filter, key)
}

func (r *blockBasedFilterReader) PrefixMayMatch(prefix []byte) bool { return true }

func (r *blockBasedFilterReader) ApproximateMemoryUsage() int {
	return len(r.filterData) + len(r.blockOffsets)*8 + len(r.filterStarts)*4
}

// fixedSizeFilterReader is the ยง4.5 third shape: a filter index (a plain
// binary-search index over transformed last-keys, reusing
// binarySearchIndexReader) that maps to the BlockHandle of the fixed-size
// filter block actually covering a transformed key. blockFetch retrieves
// and decompresses a filter block by handle, going through the same cache
// tiers as data blocks (ยง4.5: "fetches that filter block through cache").
type fixedSizeFilterReader struct {
	cmp        base.Compare
	filterIdx  *binarySearchIndexReader
	blockFetch func(h BlockHandle, opts *ReadOptions) ([]byte, error)
}

func newFixedSizeFilterReader(cmp base.Compare, filterIndexBlock block, blockFetch func(h BlockHandle, opts *ReadOptions) ([]byte, error)) *fixedSizeFilterReader {
	return &fixedSizeFilterReader{
		cmp:        cmp,
		filterIdx:  newBinarySearchIndexReader(cmp, filterIndexBlock),
		blockFetch: blockFetch,
	}
}

// lookup finds the filter block covering transformedKey, or reports the
// not-matching sentinel with zero I/O if transformedKey sorts past every
// filter-index entry (ยง4.5, ยง8 scenario 5). It always permits I/O to
// fetch the covering filter block, which is correct for
// BloomFilterAwareIterator's Seek (ยง4.8: "never bypassed for fixed-size,
// even under no_io") but not for PrefixMayMatch/Get's no_io-respecting
// path; those call lookupTier instead.
func (r *fixedSizeFilterReader) lookup(transformedKey []byte) FilterReader {
	fr, _ := r.lookupTier(transformedKey, DefaultReadOptions())
	return fr
}

// lookupTier is lookup's no_io-aware counterpart: under BlockCacheTier, a
// required filter block that is not cache-resident surfaces as
// ErrIncomplete rather than silently performing I/O.
func (r *fixedSizeFilterReader) lookupTier(transformedKey []byte, opts *ReadOptions) (FilterReader, error) {
	it := r.filterIdx.NewIterator(true)
	if !it.SeekGE(transformedKey) {
		return sentinelNotMatching, nil
	}
	h, n := DecodeBlockHandle(it.Value())
	if n == 0 {
		return sentinelNotMatching, nil
	}
	data, err := r.blockFetch(h, opts)
	if err != nil {
		if base.IsIncompleteError(err) {
			return nil, err
		}
		// ยง7: filter corruption in fixed-size mode returns "may match
		// true" in production rather than failing the read.
		return alwaysMatchFilter{}, nil
	}
	return newFullFilterReader(data), nil
}

func (r *fixedSizeFilterReader) MayMatch(key []byte) bool {
	return r.lookup(key).MayMatch(key)
}

func (r *fixedSizeFilterReader) MayMatchAtOffset(key []byte, _ uint64) bool {
	return r.MayMatch(key)
}

func (r *fixedSizeFilterReader) PrefixMayMatch(prefix []byte) bool {
	return r.lookup(prefix).MayMatch(prefix)
}

// PrefixMayMatchTier is the no_io-respecting entry point used by the
// reader's own PrefixMayMatch/Get (ยง4.9), as opposed to the always-IO
// PrefixMayMatch used by BloomFilterAwareIterator.
func (r *fixedSizeFilterReader) PrefixMayMatchTier(prefix []byte, opts *ReadOptions) (bool, error) {
	fr, err := r.lookupTier(prefix, opts)
	if err != nil {
		return false, err
	}
	return fr.MayMatch(prefix), nil
}

func (r *fixedSizeFilterReader) ApproximateMemoryUsage() int {
	return r.filterIdx.ApproximateMemoryUsage()
}

// alwaysMatchFilter is used when a fixed-size filter block fails to fetch
// or decode: ยง7 specifies this degrades to "may match true", not a hard
// failure.
type alwaysMatchFilter struct{}

func (alwaysMatchFilter) MayMatch([]byte) bool                { return true }
func (alwaysMatchFilter) MayMatchAtOffset([]byte, uint64) bool { return true }
func (alwaysMatchFilter) PrefixMayMatch([]byte) bool           { return true }
func (alwaysMatchFilter) ApproximateMemoryUsage() int          { return 0 }

// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found
// in the LICENSE file.

package sstable

import (
	"encoding/binary"

	"github.com/zmyer/blocktable/internal/base"
)

// blockIter is the ยง4.2 block iterator: binary search over restart points
// to find a starting range, then a linear scan within that range. Unlike
// the teacher's block_iter.go, which decodes entries through an
// unsafe.Pointer fast path, this reimplementation walks the slice with
// encoding/binary — a deliberate simplification documented in DESIGN.md,
// since an uncompiled unsafe-pointer rewrite is too risky to ship untested.
type blockIter struct {
	cmp      base.Compare
	data     []byte
	restarts []byte // the P*4 bytes of restart offsets, little-endian uint32
	numRestarts int

	offset     int // start of the current entry
	nextOffset int // start of the entry after the current one

	key, val []byte
	fullKey  []byte // reconstructed key buffer (shared prefix + suffix)

	// seekRestrict, when set, narrows seekToRestartPoint's binary search to
	// a sub-range of the restart points for the given target key, used by
	// the hash-augmented index reader (ยง4.4) to skip straight to the
	// restart range a key's prefix maps to. ok false means "no narrowing
	// available for this key" and the full range is searched as usual.
	seekRestrict func(key []byte) (lo, hi int, ok bool)

	err error
}

// newBlockIter constructs a blockIter over a finished block's bytes.
// Rejects a block with zero restart points as corrupt, since every valid
// block has at least the implicit restart at offset 0.
func newBlockIter(cmp base.Compare, b block) (*blockIter, error) {
	if len(b) < 4 {
		return nil, base.CorruptionErrorf("blocktable: block too short")
	}
	numRestarts := int(binary.LittleEndian.Uint32(b[len(b)-4:]))
	if numRestarts == 0 {
		return nil, base.CorruptionErrorf("blocktable: block has no restart points")
	}
	restartsStart := len(b) - 4 - numRestarts*4
	if restartsStart < 0 {
		return nil, base.CorruptionErrorf("blocktable: block restart trailer overruns block")
	}
	i := &blockIter{
		cmp:         cmp,
		data:        b[:restartsStart],
		restarts:    b[restartsStart : len(b)-4],
		numRestarts: numRestarts,
	}
	return i, nil
}

func (i *blockIter) restartPoint(idx int) int {
	return int(binary.LittleEndian.Uint32(i.restarts[idx*4:]))
}

// readEntryAt decodes the entry beginning at offset, returning the
// reconstructed full key, the value, and the offset of the following
// entry. sharedWith is the key this entry's shared prefix extends (nil at
// a restart point, where shared is always encoded as 0).
func (i *blockIter) readEntryAt(offset int, sharedWith []byte) (key, value []byte, next int, ok bool) {
	p := i.data[offset:]
	shared, n1 := binary.Uvarint(p)
	if n1 <= 0 {
		return nil, nil, 0, false
	}
	p = p[n1:]
	unshared, n2 := binary.Uvarint(p)
	if n2 <= 0 {
		return nil, nil, 0, false
	}
	p = p[n2:]
	valLen, n3 := binary.Uvarint(p)
	if n3 <= 0 {
		return nil, nil, 0, false
	}
	p = p[n3:]
	if uint64(len(p)) < unshared+valLen {
		return nil, nil, 0, false
	}
	suffix := p[:unshared]
	value = p[unshared : unshared+valLen]

	buf := make([]byte, shared+unshared)
	if shared > 0 && sharedWith != nil {
		copy(buf, sharedWith[:shared])
	}
	copy(buf[shared:], suffix)

	next = offset + n1 + n2 + n3 + int(unshared) + int(valLen)
	return buf, value, next, true
}

// seekToRestartPoint binary-searches the restart points for the last one
// whose key is <= the target key, then returns that restart point's index.
func (i *blockIter) seekToRestartPoint(key []byte) int {
	lo, hi := 0, i.numRestarts-1
	if i.seekRestrict != nil {
		if rlo, rhi, ok := i.seekRestrict(key); ok && rlo >= 0 && rhi < i.numRestarts && rlo <= rhi {
			lo, hi = rlo, rhi
		}
	}
	for lo < hi {
		mid := (lo + hi + 1) / 2
		off := i.restartPoint(mid)
		k, _, _, ok := i.readEntryAt(off, nil)
		if ok && i.cmp(k, key) <= 0 {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// SeekGE moves to the first entry with key >= the target.
func (i *blockIter) SeekGE(key []byte) bool {
	idx := i.seekToRestartPoint(key)
	off := i.restartPoint(idx)
	i.fullKey = nil
	for {
		k, v, next, ok := i.readEntryAt(off, i.fullKey)
		if !ok {
			i.err = base.CorruptionErrorf("blocktable: corrupt block entry at offset %d", off)
			return false
		}
		if i.cmp(k, key) >= 0 {
			i.offset, i.nextOffset = off, next
			i.key, i.val, i.fullKey = k, v, k
			return true
		}
		i.fullKey = k
		off = next
		if off >= len(i.data) {
			i.offset, i.nextOffset = len(i.data), len(i.data)
			i.key, i.val = nil, nil
			return false
		}
	}
}

// SeekLT moves to the last entry with key < the target.
func (i *blockIter) SeekLT(key []byte) bool {
	idx := i.seekToRestartPoint(key)
	// The restart point found may hold a key equal to the target; start one
	// restart earlier so the scan can reach the entry before it.
	if idx > 0 {
		if k, _, _, ok := i.readEntryAt(i.restartPoint(idx), nil); ok && i.cmp(k, key) >= 0 {
			idx--
		}
	}
	off := i.restartPoint(idx)
	var lastKey, lastVal []byte
	lastOff, lastNext := -1, -1
	var shared []byte
	for off < len(i.data) {
		k, v, next, ok := i.readEntryAt(off, shared)
		if !ok {
			i.err = base.CorruptionErrorf("blocktable: corrupt block entry at offset %d", off)
			return false
		}
		if i.cmp(k, key) >= 0 {
			break
		}
		lastKey, lastVal, lastOff, lastNext = k, v, off, next
		shared = k
		off = next
	}
	if lastOff < 0 {
		i.offset, i.nextOffset = 0, 0
		i.key, i.val = nil, nil
		return false
	}
	i.offset, i.nextOffset = lastOff, lastNext
	i.key, i.val, i.fullKey = lastKey, lastVal, lastKey
	return true
}

// First moves to the first entry in the block.
func (i *blockIter) First() bool {
	i.fullKey = nil
	k, v, next, ok := i.readEntryAt(0, nil)
	if !ok {
		if len(i.data) == 0 {
			i.key, i.val = nil, nil
			return false
		}
		i.err = base.CorruptionErrorf("blocktable: corrupt block entry at offset 0")
		return false
	}
	i.offset, i.nextOffset = 0, next
	i.key, i.val, i.fullKey = k, v, k
	return true
}

// Last moves to the last entry in the block.
func (i *blockIter) Last() bool {
	off := i.restartPoint(i.numRestarts - 1)
	var lastKey, lastVal []byte
	lastOff, lastNext := -1, -1
	var shared []byte
	for off < len(i.data) {
		k, v, next, ok := i.readEntryAt(off, shared)
		if !ok {
			i.err = base.CorruptionErrorf("blocktable: corrupt block entry at offset %d", off)
			return false
		}
		lastKey, lastVal, lastOff, lastNext = k, v, off, next
		shared = k
		off = next
	}
	if lastOff < 0 {
		i.key, i.val = nil, nil
		return false
	}
	i.offset, i.nextOffset = lastOff, lastNext
	i.key, i.val, i.fullKey = lastKey, lastVal, lastKey
	return true
}

// Next moves to the following entry.
func (i *blockIter) Next() bool {
	if i.nextOffset >= len(i.data) {
		i.key, i.val = nil, nil
		return false
	}
	k, v, next, ok := i.readEntryAt(i.nextOffset, i.fullKey)
	if !ok {
		i.err = base.CorruptionErrorf("blocktable: corrupt block entry at offset %d", i.nextOffset)
		return false
	}
	i.offset, i.nextOffset = i.nextOffset, next
	i.key, i.val, i.fullKey = k, v, k
	return true
}

// Prev moves to the preceding entry by re-scanning from the covering
// restart point, since entries do not carry a back-pointer.
func (i *blockIter) Prev() bool {
	if i.offset == 0 {
		i.key, i.val = nil, nil
		return false
	}
	target := i.offset
	// Find the last restart point strictly before target by linear scan
	// over restarts (numRestarts is small relative to block size in
	// practice); the preceding entry lies between it and target.
	restartIdx := 0
	for r := 0; r < i.numRestarts; r++ {
		if i.restartPoint(r) < target {
			restartIdx = r
		} else {
			break
		}
	}
	off := i.restartPoint(restartIdx)
	var prevKey, prevVal []byte
	prevOff, prevNext := -1, -1
	var shared []byte
	for off < target {
		k, v, next, ok := i.readEntryAt(off, shared)
		if !ok {
			i.err = base.CorruptionErrorf("blocktable: corrupt block entry at offset %d", off)
			return false
		}
		prevKey, prevVal, prevOff, prevNext = k, v, off, next
		shared = k
		off = next
	}
	if prevOff < 0 {
		i.key, i.val = nil, nil
		return false
	}
	i.offset, i.nextOffset = prevOff, prevNext
	i.key, i.val, i.fullKey = prevKey, prevVal, prevKey
	return true
}

// Valid reports whether the iterator is positioned at an entry.
func (i *blockIter) Valid() bool {
	return i.key != nil
}

// Key returns the current entry's key. The caller must not retain it past
// the next positioning call.
func (i *blockIter) Key() []byte {
	return i.key
}

// Value returns the current entry's value.
func (i *blockIter) Value() []byte {
	return i.val
}

// Error returns any error encountered during iteration.
func (i *blockIter) Error() error {
	return i.err
}

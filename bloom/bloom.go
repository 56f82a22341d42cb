// Copyright 2013 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found
// in the LICENSE file.

// Package bloom implements the cache-line-constrained Bloom filter used by
// the full, block-based, and fixed-size filter readers of ยง4.5. The bit
// format matches RocksDB's full-filter encoding: nLines*64 bytes of filter
// bits, followed by a 1-byte probe count and a 4-byte little-endian line
// count.
package bloom

import (
	"encoding/binary"
	"fmt"
)

// cacheLineSize is the width, in bytes, of the cache line each key's probes
// are constrained to stay within. Keeping every probe for a key inside one
// cache line is what makes MayContain a single cache miss in the common
// case, at a small statistical cost in false-positive rate.
const cacheLineSize = 64
const cacheLineBits = cacheLineSize * 8

// probes[bitsPerKey] is the empirically-derived optimal probe count for a
// cache-line-constrained filter at that density; values above 10 reuse
// probes[10].
var probes = [11]uint32{
	1: 1, 2: 1, 3: 2, 4: 3, 5: 3, 6: 4, 7: 4, 8: 5, 9: 5, 10: 6,
}

func calculateProbes(bitsPerKey uint32) uint32 {
	if bitsPerKey > 10 {
		return probes[10]
	}
	return probes[bitsPerKey]
}

// Hash implements RocksDB's Murmur-like hash over a key. Filter readers use
// it directly to probe, and the test-only builder uses it to populate a
// filter.
func Hash(b []byte) uint32 {
	const (
		seed = 0xbc9f1d34
		m    = 0xc6a4a793
	)
	h := uint32(seed) ^ (uint32(len(b)) * m)
	for ; len(b) >= 4; b = b[4:] {
		h += uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
		h *= m
		h ^= h >> 16
	}
	// Casting each trailing byte through int8 sign-extends it, matching
	// RocksDB's original (signed char) behavior.
	switch len(b) {
	case 3:
		h += uint32(int8(b[2])) << 16
		fallthrough
	case 2:
		h += uint32(int8(b[1])) << 8
		fallthrough
	case 1:
		h += uint32(int8(b[0]))
		h *= m
		h ^= h >> 24
	}
	return h
}

// CalculateNumLines returns the odd number of cache lines needed to hold
// numHashes keys at bitsPerKey density. Forcing an odd count spreads the
// line-selection hash over more of its range.
func CalculateNumLines(numHashes int, bitsPerKey uint32) uint32 {
	nLines := (uint64(numHashes)*uint64(bitsPerKey) + cacheLineBits - 1) / cacheLineBits
	if nLines == 0 {
		nLines = 1
	}
	return uint32(nLines | 1)
}

// BuildFilter constructs a filter in RocksDB's full-filter byte format from
// the given key hashes. It is test-fixture-only machinery: the write path
// that normally calls this is out of scope, but table-format round-trip
// tests need a real filter to read back.
func BuildFilter(hashes []uint32, bitsPerKey uint32) []byte {
	nProbes := calculateProbes(bitsPerKey)
	nLines := CalculateNumLines(len(hashes), bitsPerKey)
	nBytes := nLines * cacheLineSize
	filter := make([]byte, nBytes+5)
	bits := filterBits{data: filter[:nBytes], numLines: nLines}
	for _, h := range hashes {
		bits.set(nProbes, h)
	}
	filter[nBytes] = byte(nProbes)
	binary.LittleEndian.PutUint32(filter[nBytes+1:], nLines)
	return filter
}

// filterBits is the safe (no unsafe.Pointer) equivalent of the teacher's
// aliased-bits view: a byte slice addressed as numLines fixed-size cache
// lines. The teacher's bits.go uses unsafe.Pointer arithmetic to avoid
// bounds checks; this reimplementation keeps the identical bit layout and
// probe/set algorithm but indexes the slice directly, trading a small
// amount of throughput for a package with no unsafe code.
type filterBits struct {
	data     []byte
	numLines uint32
}

func (f filterBits) lineOffset(h uint32) int {
	return int(h%f.numLines) * cacheLineSize
}

func (f filterBits) probe(nProbes uint8, h uint32) bool {
	delta := h>>17 | h<<15
	off := f.lineOffset(h)
	for i := uint8(0); i < nProbes; i++ {
		bytePos := off + int((h>>3)&(cacheLineSize-1))
		if f.data[bytePos]&(1<<(h&7)) == 0 {
			return false
		}
		h += delta
	}
	return true
}

func (f filterBits) set(nProbes uint32, h uint32) {
	delta := h>>17 | h<<15
	off := f.lineOffset(h)
	for i := uint32(0); i < nProbes; i++ {
		bytePos := off + int((h>>3)&(cacheLineSize-1))
		f.data[bytePos] |= 1 << (h & 7)
		h += delta
	}
}

// MayContain reports whether key may be present in a full-filter-format
// filter block built by BuildFilter. A malformed or too-short filter (fewer
// than 6 bytes) is treated as "may match" rather than panicking, matching
// the debug-assert-but-fail-open policy of ยง7 for filter corruption.
func MayContain(filter []byte, key []byte) bool {
	return mayContainHash(filter, Hash(key))
}

func mayContainHash(filter []byte, h uint32) bool {
	if len(filter) <= 5 {
		return true // an absent or malformed filter matches everything
	}
	n := len(filter) - 5
	nProbes := filter[n]
	nLines := binary.LittleEndian.Uint32(filter[n+1:])
	if nLines == 0 || uint32(n)%nLines != 0 || uint32(n)/nLines != cacheLineSize {
		return true
	}
	bits := filterBits{data: filter[:n], numLines: nLines}
	return bits.probe(nProbes, h)
}

// builtinBloomFilterName identifies this filter family in meta-index and properties lookups,
// matching RocksDB's exact on-disk policy name for the default 10
// bits-per-key configuration.
const builtinBloomFilterName = "rocksdb.BuiltinBloomFilter"

// Policy describes a Bloom filter configuration by its bits-per-key
// density. Its Name matches the on-disk policy-name suffix used in
// meta-index keys like "fullfilter.<POLICY>".
type Policy struct {
	BitsPerKey uint32
}

// NewPolicy returns a Policy with the given bits-per-key density. A good
// default is 10, yielding roughly a 1% false-positive rate.
func NewPolicy(bitsPerKey uint32) Policy {
	if bitsPerKey < 1 {
		panic(fmt.Sprintf("blocktable/bloom: invalid bitsPerKey %d", bitsPerKey))
	}
	return Policy{BitsPerKey: bitsPerKey}
}

// Name returns the on-disk policy name, e.g. for building or matching a
// meta-index key such as "fullfilter.rocksdb.BuiltinBloomFilter".
func (p Policy) Name() string {
	if p.BitsPerKey == 10 {
		return builtinBloomFilterName
	}
	return fmt.Sprintf("bloom(%d)", p.BitsPerKey)
}

// PolicyFromName parses a policy name as produced by Policy.Name, for
// matching against the filter policy configured on the reader's Options.
func PolicyFromName(name string) (Policy, bool) {
	if name == builtinBloomFilterName {
		return NewPolicy(10), true
	}
	var bitsPerKey uint32
	if n, err := fmt.Sscanf(name, "bloom(%d)", &bitsPerKey); err == nil && n == 1 && bitsPerKey >= 1 {
		return NewPolicy(bitsPerKey), true
	}
	return Policy{}, false
}

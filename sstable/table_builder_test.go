// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found
// in the LICENSE file.

package sstable

import (
	"encoding/binary"

	"github.com/zmyer/blocktable/bloom"
	"github.com/zmyer/blocktable/internal/base"
)

// testKV is one entry fed to buildTestTable. Entries must already be
// supplied in ascending encoded-key order; the write path being out of
// scope, this test helper does not sort them itself.
type testKV struct {
	userKey []byte
	seqNum  uint64
	kind    base.InternalKeyKind
	value   []byte
}

func encodeTestKey(kv testKV) []byte {
	ik := base.MakeInternalKey(kv.userKey, kv.seqNum, kv.kind)
	buf := make([]byte, ik.Size())
	ik.Encode(buf)
	return buf
}

func buildRawBlock(entries [][2][]byte, restartInterval int) []byte {
	w := newBlockWriter(restartInterval)
	for _, e := range entries {
		w.add(e[0], e[1])
	}
	return w.finish()
}

// tableBuilder assembles an in-memory table file, tracking byte offsets as
// blocks are appended so BlockHandles come out correct without a second
// pass.
type tableBuilder struct {
	buf          []byte
	compression  byte
	checksumKind uint8
}

func newTableBuilder(compression byte, checksumKind uint8) *tableBuilder {
	return &tableBuilder{compression: compression, checksumKind: checksumKind}
}

func (b *tableBuilder) appendBlock(raw []byte) BlockHandle {
	onDisk := compressBlock(raw, b.compression, b.checksumKind)
	h := BlockHandle{Offset: uint64(len(b.buf)), Length: uint64(len(onDisk) - blockTrailerLen)}
	b.buf = append(b.buf, onDisk...)
	return h
}

type buildOptions struct {
	entriesPerBlock   int
	restartInterval   int
	compression       byte
	checksumKind      uint8
	filterType        FilterType
	filterPolicyName  string
	bitsPerKey        uint32
	split             base.Split
	wholeKeyFiltering bool
	prefixFiltering   bool
	indexType         IndexType
}

func defaultBuildOptions() buildOptions {
	return buildOptions{
		entriesPerBlock:   4,
		restartInterval:   2,
		compression:       compressionNone,
		checksumKind:      ChecksumCRC32c,
		filterType:        FilterTypeNone,
		filterPolicyName:  "test",
		bitsPerKey:        10,
		wholeKeyFiltering: true,
	}
}

// buildTestTable assembles a complete in-memory table from entries under o,
// returning the finished bytes (suitable for wrapping in a bytes.Reader and
// passed to NewReader).
func buildTestTable(entries []testKV, o buildOptions) []byte {
	tb := newTableBuilder(o.compression, o.checksumKind)

	type blockInfo struct {
		handle   BlockHandle
		lastKey  []byte
		userKeys [][]byte
	}
	var blocks []blockInfo

	for i := 0; i < len(entries); i += o.entriesPerBlock {
		end := i + o.entriesPerBlock
		if end > len(entries) {
			end = len(entries)
		}
		chunk := entries[i:end]
		var kvPairs [][2][]byte
		var userKeys [][]byte
		for _, e := range chunk {
			kvPairs = append(kvPairs, [2][]byte{encodeTestKey(e), e.value})
			userKeys = append(userKeys, e.userKey)
		}
		raw := buildRawBlock(kvPairs, o.restartInterval)
		h := tb.appendBlock(raw)
		blocks = append(blocks, blockInfo{handle: h, lastKey: kvPairs[len(kvPairs)-1][0], userKeys: userKeys})
	}

	var idxPairs [][2][]byte
	for _, b := range blocks {
		hbuf := make([]byte, blockHandleMaxLen)
		n := EncodeBlockHandle(hbuf, b.handle)
		idxPairs = append(idxPairs, [2][]byte{b.lastKey, hbuf[:n]})
	}
	idxRaw := buildRawBlock(idxPairs, 1)
	indexBH := tb.appendBlock(idxRaw)

	meta := map[string]BlockHandle{}

	if o.indexType == IndexTypeHashSearch && o.split != nil {
		var auxPairs [][2][]byte
		for i, b := range blocks {
			lastUser := b.userKeys[len(b.userKeys)-1]
			prefix := o.split(lastUser)
			val := make([]byte, 2*binary.MaxVarintLen64)
			n := binary.PutUvarint(val, uint64(i))
			n += binary.PutUvarint(val[n:], uint64(i))
			auxPairs = append(auxPairs, [2][]byte{append([]byte(nil), prefix...), val[:n]})
		}
		auxRaw := buildRawBlock(auxPairs, 1)
		auxBH := tb.appendBlock(auxRaw)
		meta[metaHashIndexPrefixesMeta] = auxBH
	}

	switch o.filterType {
	case FilterTypeFull:
		var hashes []uint32
		for _, b := range blocks {
			for _, uk := range b.userKeys {
				key := uk
				if o.split != nil {
					key = o.split(uk)
				}
				hashes = append(hashes, bloom.Hash(key))
			}
		}
		filterRaw := bloom.BuildFilter(hashes, o.bitsPerKey)
		h := tb.appendBlock(filterRaw)
		meta[filterPrefixFull+o.filterPolicyName] = h

	case FilterTypeBlockBased:
		var filterBytes []byte
		var blockOffsets []uint64
		var filterStarts []uint32
		for _, b := range blocks {
			var hashes []uint32
			for _, uk := range b.userKeys {
				hashes = append(hashes, bloom.Hash(uk))
			}
			f := bloom.BuildFilter(hashes, o.bitsPerKey)
			filterStarts = append(filterStarts, uint32(len(filterBytes)))
			filterBytes = append(filterBytes, f...)
			blockOffsets = append(blockOffsets, b.handle.Offset)
		}
		k := len(blocks)
		trailer := make([]byte, k*8+k*4+4)
		off := 0
		for _, bo := range blockOffsets {
			binary.LittleEndian.PutUint64(trailer[off:], bo)
			off += 8
		}
		for _, s := range filterStarts {
			binary.LittleEndian.PutUint32(trailer[off:], s)
			off += 4
		}
		binary.LittleEndian.PutUint32(trailer[off:], uint32(k))
		raw := append(append([]byte(nil), filterBytes...), trailer...)
		h := tb.appendBlock(raw)
		meta[filterPrefixBlockBased+o.filterPolicyName] = h

	case FilterTypeFixedSize:
		var idxEntries [][2][]byte
		for _, b := range blocks {
			var hashes []uint32
			for _, uk := range b.userKeys {
				key := uk
				if o.split != nil {
					key = o.split(uk)
				}
				hashes = append(hashes, bloom.Hash(key))
			}
			f := bloom.BuildFilter(hashes, o.bitsPerKey)
			fh := tb.appendBlock(f)
			hbuf := make([]byte, blockHandleMaxLen)
			n := EncodeBlockHandle(hbuf, fh)
			lastUser := b.userKeys[len(b.userKeys)-1]
			fk := lastUser
			if o.split != nil {
				fk = o.split(lastUser)
			}
			idxEntries = append(idxEntries, [2][]byte{append([]byte(nil), fk...), hbuf[:n]})
		}
		filterIdxRaw := buildRawBlock(idxEntries, 1)
		h := tb.appendBlock(filterIdxRaw)
		meta[filterPrefixFixedSize+o.filterPolicyName] = h
	}

	var propPairs [][2][]byte
	addProp := func(name string, val []byte) {
		propPairs = append(propPairs, [2][]byte{[]byte(name), val})
	}
	boolByte := func(v bool) []byte {
		if v {
			return []byte("1")
		}
		return []byte("0")
	}
	addProp(propWholeKeyFiltering, boolByte(o.wholeKeyFiltering))
	addProp(propPrefixFiltering, boolByte(o.prefixFiltering))
	idxTypeBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(idxTypeBuf, uint32(o.indexType))
	addProp(propIndexType, idxTypeBuf)
	numBuf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(numBuf, uint64(len(entries)))
	addProp(propNumEntries, numBuf[:n])
	propsRaw := buildRawBlock(propPairs, 1)
	propsBH := tb.appendBlock(propsRaw)
	meta[metaPropertiesName] = propsBH

	var metaPairs [][2][]byte
	for name, h := range meta {
		hbuf := make([]byte, blockHandleMaxLen)
		n := EncodeBlockHandle(hbuf, h)
		metaPairs = append(metaPairs, [2][]byte{[]byte(name), hbuf[:n]})
	}
	metaRaw := buildRawBlock(metaPairs, 1)
	metaindexBH := tb.appendBlock(metaRaw)

	f := footer{checksum: o.checksumKind, metaindexBH: metaindexBH, indexBH: indexBH}
	tb.buf = append(tb.buf, f.encode()...)

	return tb.buf
}

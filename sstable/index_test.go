// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found
// in the LICENSE file.

package sstable

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zmyer/blocktable/internal/base"
)

func TestBinarySearchIndexReaderSeek(t *testing.T) {
	h1 := BlockHandle{Offset: 0, Length: 30}
	h2 := BlockHandle{Offset: 30, Length: 30}
	buf1 := make([]byte, blockHandleMaxLen)
	n1 := EncodeBlockHandle(buf1, h1)
	buf2 := make([]byte, blockHandleMaxLen)
	n2 := EncodeBlockHandle(buf2, h2)

	raw := buildRawBlock([][2][]byte{
		{[]byte("banana"), buf1[:n1]},
		{[]byte("cherry"), buf2[:n2]},
	}, 1)

	r := newBinarySearchIndexReader(bytes.Compare, block(raw))
	it := r.NewIterator(true)
	require.True(t, it.SeekGE([]byte("apple")))
	h, n := DecodeBlockHandle(it.Value())
	require.NotZero(t, n)
	require.Equal(t, h1, h)

	require.True(t, it.SeekGE([]byte("caramel")))
	h, n = DecodeBlockHandle(it.Value())
	require.NotZero(t, n)
	require.Equal(t, h2, h)

	require.False(t, it.SeekGE([]byte("zucchini")))
	require.Greater(t, r.ApproximateMemoryUsage(), 0)
}

func TestHashIndexReaderFallsBackWithoutSplit(t *testing.T) {
	raw := buildRawBlock([][2][]byte{{[]byte("a"), []byte("x")}}, 1)
	r := newHashIndexReader(bytes.Compare, block(raw), nil, nil, base.DefaultLogger, false)
	it := r.NewIterator(true)
	require.True(t, it.SeekGE([]byte("a")))
	require.Nil(t, it.seekRestrict)
	_, ok := r.seekRestrictedByPrefix([]byte("a"))
	require.False(t, ok)
}

func TestParseHashIndexAuxAndRestrictedLookup(t *testing.T) {
	startEnd := func(start, end int) []byte {
		buf := make([]byte, 2*binary.MaxVarintLen64)
		n := binary.PutUvarint(buf, uint64(start))
		n += binary.PutUvarint(buf[n:], uint64(end))
		return buf[:n]
	}
	auxRaw := buildRawBlock([][2][]byte{
		{[]byte("ba"), startEnd(0, 1)},
		{[]byte("ch"), startEnd(1, 2)},
	}, 1)

	split := func(userKey []byte) []byte {
		if len(userKey) < 2 {
			return userKey
		}
		return userKey[:2]
	}

	r := newHashIndexReader(bytes.Compare, block(buildRawBlock(nil, 1)), block(auxRaw), split, base.DefaultLogger, false)
	require.NotNil(t, r.aux)

	rng, ok := r.seekRestrictedByPrefix([]byte("banana"))
	require.True(t, ok)
	require.Equal(t, prefixRange{0, 1}, rng)

	_, ok = r.seekRestrictedByPrefix([]byte("zzz"))
	require.False(t, ok)
}

func TestParseHashIndexAuxCorruptionFallsBack(t *testing.T) {
	auxRaw := buildRawBlock([][2][]byte{{[]byte("ba"), []byte{0xff}}}, 1)
	split := func(userKey []byte) []byte { return userKey }
	r := newHashIndexReader(bytes.Compare, block(buildRawBlock(nil, 1)), block(auxRaw), split, base.DefaultLogger, false)
	require.Nil(t, r.aux)
}

// TestHashIndexReaderNewIteratorWiresSeekRestrict confirms NewIterator
// actually sets blockIter.seekRestrict from the parsed auxiliary, rather
// than silently delegating to the unrestricted binary-search iterator:
// ยง4.4's fallback rule applies only when totalOrderSeek is true or no
// auxiliary parsed, not unconditionally.
func TestHashIndexReaderNewIteratorWiresSeekRestrict(t *testing.T) {
	startEnd := func(start, end int) []byte {
		buf := make([]byte, 2*binary.MaxVarintLen64)
		n := binary.PutUvarint(buf, uint64(start))
		n += binary.PutUvarint(buf[n:], uint64(end))
		return buf[:n]
	}
	auxRaw := buildRawBlock([][2][]byte{
		{[]byte("ba"), startEnd(0, 1)},
		{[]byte("ch"), startEnd(1, 2)},
	}, 1)
	split := func(userKey []byte) []byte {
		if len(userKey) < 2 {
			return userKey
		}
		return userKey[:2]
	}
	idxRaw := buildRawBlock(nil, 1)

	withAux := newHashIndexReader(bytes.Compare, block(idxRaw), block(auxRaw), split, base.DefaultLogger, false)
	it := withAux.NewIterator(false)
	require.NotNil(t, it.seekRestrict)

	itTotalOrder := withAux.NewIterator(true)
	require.Nil(t, itTotalOrder.seekRestrict)

	withoutAux := newHashIndexReader(bytes.Compare, block(idxRaw), nil, nil, base.DefaultLogger, false)
	itNoAux := withoutAux.NewIterator(false)
	require.Nil(t, itNoAux.seekRestrict)

	withDense := newHashIndexReader(bytes.Compare, block(idxRaw), block(auxRaw), split, base.DefaultLogger, true)
	require.NotNil(t, withDense.dense)
	itDense := withDense.NewIterator(false)
	require.NotNil(t, itDense.seekRestrict)
	// Two prefixes give two buckets, and "ba" and "ch" hash into the same
	// one, so that bucket holds the union of their ranges.
	rng, ok := withDense.seekRestrictedByPrefix([]byte("banana"))
	require.True(t, ok)
	require.Equal(t, prefixRange{0, 2}, rng)
}

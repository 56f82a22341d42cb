// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found
// in the LICENSE file.

package sstable

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zmyer/blocktable/internal/base"
)

func TestParseMetaIndexRoundTrip(t *testing.T) {
	h1 := BlockHandle{Offset: 10, Length: 20}
	h2 := BlockHandle{Offset: 100, Length: 5}

	buf1 := make([]byte, blockHandleMaxLen)
	n1 := EncodeBlockHandle(buf1, h1)
	buf2 := make([]byte, blockHandleMaxLen)
	n2 := EncodeBlockHandle(buf2, h2)

	raw := buildRawBlock([][2][]byte{
		{[]byte(metaPropertiesName), buf1[:n1]},
		{[]byte("filter.rocksdb.BuiltinBloomFilter"), buf2[:n2]},
	}, 1)

	meta, err := parseMetaIndex(block(raw), base.DefaultLogger)
	require.NoError(t, err)
	require.Equal(t, h1, meta[metaPropertiesName])
	require.Equal(t, h2, meta["filter.rocksdb.BuiltinBloomFilter"])
}

func TestFindFilterHandlePrecedence(t *testing.T) {
	full := BlockHandle{Offset: 1, Length: 1}
	blockBased := BlockHandle{Offset: 2, Length: 2}
	meta := map[string]BlockHandle{
		filterPrefixFull + "p":       full,
		filterPrefixBlockBased + "p": blockBased,
	}
	h, typ, ok := findFilterHandle(meta, "p")
	require.True(t, ok)
	require.Equal(t, FilterTypeFull, typ)
	require.Equal(t, full, h)
}

func TestFindFilterHandleMissing(t *testing.T) {
	_, _, ok := findFilterHandle(map[string]BlockHandle{}, "p")
	require.False(t, ok)
}

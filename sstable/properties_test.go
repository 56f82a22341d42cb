// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found
// in the LICENSE file.

package sstable

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zmyer/blocktable/internal/base"
)

func TestParsePropertiesDefaultsAndOverrides(t *testing.T) {
	numBuf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(numBuf, 42)

	raw := buildRawBlock([][2][]byte{
		{[]byte(propWholeKeyFiltering), []byte("0")},
		{[]byte(propPrefixFiltering), []byte("1")},
		{[]byte(propNumEntries), numBuf[:n]},
		{[]byte(propComparator), []byte("leveldb.BytewiseComparator")},
	}, 1)

	p := parseProperties(block(raw), base.DefaultLogger)
	require.False(t, p.WholeKeyFiltering)
	require.True(t, p.PrefixFiltering)
	require.Equal(t, uint64(42), p.NumEntries)
	require.Equal(t, "leveldb.BytewiseComparator", p.ComparatorName)
}

func TestParsePropertiesUnrecognizedBoolDegradesToTrue(t *testing.T) {
	raw := buildRawBlock([][2][]byte{
		{[]byte(propWholeKeyFiltering), []byte("maybe")},
	}, 1)
	p := parseProperties(block(raw), base.DefaultLogger)
	require.True(t, p.WholeKeyFiltering)
}

func TestParsePropertiesEmptyBlockDefaults(t *testing.T) {
	raw := buildRawBlock(nil, 1)
	p := parseProperties(block(raw), base.DefaultLogger)
	require.True(t, p.WholeKeyFiltering)
	require.True(t, p.PrefixFiltering)
}

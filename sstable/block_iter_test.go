// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found
// in the LICENSE file.

package sstable

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildTestBlockIter(t *testing.T, restartInterval int) *blockIter {
	raw := buildRawBlock([][2][]byte{
		{[]byte("apple"), []byte("v0")},
		{[]byte("apricot"), []byte("v1")},
		{[]byte("banana"), []byte("v2")},
		{[]byte("blueberry"), []byte("v3")},
		{[]byte("cherry"), []byte("v4")},
	}, restartInterval)
	it, err := newBlockIter(bytes.Compare, block(raw))
	require.NoError(t, err)
	return it
}

func TestBlockIterFirstLast(t *testing.T) {
	it := buildTestBlockIter(t, 2)
	require.True(t, it.First())
	require.Equal(t, []byte("apple"), it.Key())
	require.True(t, it.Last())
	require.Equal(t, []byte("cherry"), it.Key())
}

func TestBlockIterForwardScan(t *testing.T) {
	it := buildTestBlockIter(t, 2)
	var got []string
	for valid := it.First(); valid; valid = it.Next() {
		got = append(got, string(it.Key()))
	}
	require.Equal(t, []string{"apple", "apricot", "banana", "blueberry", "cherry"}, got)
}

func TestBlockIterBackwardScan(t *testing.T) {
	it := buildTestBlockIter(t, 2)
	var got []string
	for valid := it.Last(); valid; valid = it.Prev() {
		got = append(got, string(it.Key()))
	}
	require.Equal(t, []string{"cherry", "blueberry", "banana", "apricot", "apple"}, got)
}

func TestBlockIterSeekGEExactAndBetween(t *testing.T) {
	it := buildTestBlockIter(t, 2)
	require.True(t, it.SeekGE([]byte("banana")))
	require.Equal(t, []byte("banana"), it.Key())

	require.True(t, it.SeekGE([]byte("avocado")))
	require.Equal(t, []byte("banana"), it.Key())

	require.False(t, it.SeekGE([]byte("zebra")))
}

func TestBlockIterSeekLT(t *testing.T) {
	it := buildTestBlockIter(t, 2)
	require.True(t, it.SeekLT([]byte("banana")))
	require.Equal(t, []byte("apricot"), it.Key())

	require.False(t, it.SeekLT([]byte("apple")))
}

func TestBlockIterRestartInterval1(t *testing.T) {
	it := buildTestBlockIter(t, 1)
	require.True(t, it.SeekGE([]byte("blueberry")))
	require.Equal(t, []byte("blueberry"), it.Key())
	require.Equal(t, []byte("v3"), it.Value())
}

func TestNewBlockIterRejectsEmptyBlock(t *testing.T) {
	_, err := newBlockIter(bytes.Compare, block(nil))
	require.Error(t, err)
}

// Copyright 2011 The LevelDB-Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package base

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInternalKeyEncodeDecode(t *testing.T) {
	k := MakeInternalKey([]byte("hello"), 42, InternalKeyKindSet)
	buf := make([]byte, k.Size())
	k.Encode(buf)

	got := DecodeInternalKey(buf)
	require.True(t, got.Valid())
	require.Equal(t, []byte("hello"), got.UserKey)
	require.Equal(t, uint64(42), got.SeqNum())
	require.Equal(t, InternalKeyKindSet, got.Kind())
}

func TestDecodeInternalKeyShortBuffer(t *testing.T) {
	got := DecodeInternalKey([]byte("abc"))
	require.False(t, got.Valid())
}

func TestInternalCompareOrdersBySeqNumDescending(t *testing.T) {
	a := MakeInternalKey([]byte("k"), 5, InternalKeyKindSet)
	b := MakeInternalKey([]byte("k"), 3, InternalKeyKindSet)
	require.Negative(t, InternalCompare(DefaultComparer.Compare, a, b))
	require.Positive(t, InternalCompare(DefaultComparer.Compare, b, a))
}

func TestInternalCompareOrdersByUserKeyFirst(t *testing.T) {
	a := MakeInternalKey([]byte("a"), 1, InternalKeyKindSet)
	b := MakeInternalKey([]byte("b"), 100, InternalKeyKindSet)
	require.Negative(t, InternalCompare(DefaultComparer.Compare, a, b))
}

func TestMakeSearchKeySortsBeforeAnyRealKey(t *testing.T) {
	search := MakeSearchKey([]byte("k"))
	real := MakeInternalKey([]byte("k"), 1, InternalKeyKindSet)
	require.Negative(t, InternalCompare(DefaultComparer.Compare, search, real))
}

func TestSharedPrefixLen(t *testing.T) {
	require.Equal(t, 3, SharedPrefixLen([]byte("abcdef"), []byte("abcxyz")))
	require.Equal(t, 0, SharedPrefixLen([]byte("abc"), []byte("xyz")))
	require.Equal(t, 3, SharedPrefixLen([]byte("abc"), []byte("abc")))
}

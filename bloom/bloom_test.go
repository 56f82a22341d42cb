// Copyright 2013 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found
// in the LICENSE file.

package bloom

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildFromKeys(keys []string, bitsPerKey uint32) []byte {
	hashes := make([]uint32, len(keys))
	for i, k := range keys {
		hashes[i] = Hash([]byte(k))
	}
	return BuildFilter(hashes, bitsPerKey)
}

func TestNoFalseNegatives(t *testing.T) {
	keys := make([]string, 0, 1000)
	for i := 0; i < 1000; i++ {
		keys = append(keys, fmt.Sprintf("key-%06d", i))
	}
	filter := buildFromKeys(keys, 10)
	for _, k := range keys {
		require.True(t, MayContain(filter, []byte(k)), "key %q must never be a false negative", k)
	}
}

func TestFalsePositiveRateWithinBound(t *testing.T) {
	keys := make([]string, 0, 10000)
	for i := 0; i < 10000; i++ {
		keys = append(keys, fmt.Sprintf("present-%06d", i))
	}
	filter := buildFromKeys(keys, 10)

	falsePositives := 0
	const trials = 10000
	for i := 0; i < trials; i++ {
		k := fmt.Sprintf("absent-%06d", i)
		if MayContain(filter, []byte(k)) {
			falsePositives++
		}
	}
	rate := float64(falsePositives) / float64(trials)
	require.Less(t, rate, 0.05, "false positive rate should stay near the ~1%% target for 10 bits/key")
}

func TestEmptyFilterMatchesEverything(t *testing.T) {
	require.True(t, MayContain(nil, []byte("anything")))
}

func TestMalformedFilterFailsOpen(t *testing.T) {
	require.True(t, MayContain([]byte{1, 2, 3}, []byte("anything")))
}

func TestPolicyNameRoundTrip(t *testing.T) {
	p := NewPolicy(10)
	require.Equal(t, "rocksdb.BuiltinBloomFilter", p.Name())
	got, ok := PolicyFromName(p.Name())
	require.True(t, ok)
	require.Equal(t, p, got)

	p2 := NewPolicy(14)
	got2, ok := PolicyFromName(p2.Name())
	require.True(t, ok)
	require.Equal(t, p2, got2)
}

func TestPolicyFromNameUnknown(t *testing.T) {
	_, ok := PolicyFromName("not-a-bloom-filter")
	require.False(t, ok)
}

// Copyright 2011 The LevelDB-Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package base

import "bytes"

// Compare returns -1, 0, or +1 depending on whether a is less than, equal
// to, or greater than b, in key order.
type Compare func(a, b []byte) int

// Equal returns whether a and b are equivalent keys.
type Equal func(a, b []byte) bool

// Separator returns a short key, no larger than b, that separates a and b,
// or nil if no shorter separator exists. Used by index readers that want a
// compact boundary key; this reader never constructs one (write path only)
// but the type is part of the shared Comparer surface.
type Separator func(dst, a, b []byte) []byte

// Comparer bundles the user-supplied key-ordering functions the reader
// relies on throughout the index, filter, and iterator layers.
type Comparer struct {
	Compare Compare
	Equal   Equal
	// Name identifies the comparer for compatibility checks against the
	// comparer name recorded in table properties at write time.
	Name string
}

// DefaultComparer orders keys lexicographically by unsigned byte value,
// matching the byte-wise ordering used throughout the on-disk format for
// meta-index and properties lookups.
var DefaultComparer = &Comparer{
	Compare: bytes.Compare,
	Equal:   bytes.Equal,
	Name:    "leveldb.BytewiseComparator",
}

// SharedPrefixLen returns the length of the common prefix of a and b.
func SharedPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// Split extracts a prefix from a user key for prefix-based filtering. It
// must be monotonic with respect to Compare: if Split(a) == Split(b), the
// comparator must treat all keys sharing that prefix as contiguous.
type Split func(userKey []byte) []byte

// Copyright 2011 The LevelDB-Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package base defines comparators, internal keys, and the error taxonomy
// shared by the cache, bloom, and sstable packages.
package base

import (
	"encoding/binary"
)

// InternalKeyKind enumerates the kinds of entry a table may hold.
type InternalKeyKind uint8

// These constants are part of the on-disk file format and must not change.
const (
	InternalKeyKindDelete InternalKeyKind = 0
	InternalKeyKindSet    InternalKeyKind = 1
	InternalKeyKindMerge  InternalKeyKind = 2

	// InternalKeyKindMax sorts less than or equal to any other valid kind.
	// Used to build a synthetic search key for a given user key.
	InternalKeyKindMax InternalKeyKind = 17

	// InternalKeyKindInvalid marks a key that failed to decode.
	InternalKeyKindInvalid InternalKeyKind = 255

	// InternalKeySeqNumMax is the largest valid sequence number.
	InternalKeySeqNumMax = uint64(1<<56 - 1)
)

// InternalKey is the user key plus the 8-byte trailer (sequence number and
// kind) that orders entries sharing the same user key.
//
// The trailer sorts a key with a higher sequence number (or, on a tie,
// higher kind) before one with a lower sequence number, so that the most
// recent write for a user key is found first during a forward scan.
type InternalKey struct {
	UserKey []byte
	Trailer uint64
}

// MakeInternalKey builds an InternalKey from its parts.
func MakeInternalKey(userKey []byte, seqNum uint64, kind InternalKeyKind) InternalKey {
	return InternalKey{
		UserKey: userKey,
		Trailer: (seqNum << 8) | uint64(kind),
	}
}

// MakeSearchKey builds a synthetic InternalKey used only for seeking: it
// sorts before any real internal key sharing the same user key, since
// maxSeqNum and InternalKeyKindMax give the largest trailer, which
// InternalCompare orders first among equal user keys.
func MakeSearchKey(userKey []byte) InternalKey {
	return MakeInternalKey(userKey, InternalKeySeqNumMax, InternalKeyKindMax)
}

// DecodeInternalKey decodes an encoded internal key (user key followed by
// an 8-byte little-endian trailer). A buffer shorter than 8 bytes decodes to
// an invalid key rather than panicking.
func DecodeInternalKey(encodedKey []byte) InternalKey {
	n := len(encodedKey) - 8
	if n < 0 {
		return InternalKey{UserKey: encodedKey, Trailer: uint64(InternalKeyKindInvalid)}
	}
	return InternalKey{
		UserKey: encodedKey[:n:n],
		Trailer: binary.LittleEndian.Uint64(encodedKey[n:]),
	}
}

// Encode writes the key's user key and trailer into buf, which must be at
// least k.Size() bytes long.
func (k InternalKey) Encode(buf []byte) {
	i := copy(buf, k.UserKey)
	binary.LittleEndian.PutUint64(buf[i:], k.Trailer)
}

// Size returns the number of bytes Encode will write.
func (k InternalKey) Size() int {
	return len(k.UserKey) + 8
}

// SeqNum returns the key's sequence number.
func (k InternalKey) SeqNum() uint64 {
	return k.Trailer >> 8
}

// Kind returns the key's kind.
func (k InternalKey) Kind() InternalKeyKind {
	return InternalKeyKind(k.Trailer & 0xff)
}

// Valid reports whether the key decoded to a recognized kind.
func (k InternalKey) Valid() bool {
	return k.Kind() != InternalKeyKindInvalid
}

// Clone returns a deep copy of k, with its own backing array for UserKey.
func (k InternalKey) Clone() InternalKey {
	if k.UserKey == nil {
		return k
	}
	return InternalKey{
		UserKey: append([]byte(nil), k.UserKey...),
		Trailer: k.Trailer,
	}
}

// InternalKeyCompare returns a Compare function over encoded internal keys
// (a user key followed by the 8-byte trailer), ordering each pair by
// InternalCompare rather than by the raw bytes of the encoding. Block and
// index iterators over internal-key-keyed blocks must use this rather than
// a plain user-key Compare, since comparing the trailer's little-endian
// bytes directly does not correspond to sequence-number order.
func InternalKeyCompare(userCmp Compare) Compare {
	return func(a, b []byte) int {
		return InternalCompare(userCmp, DecodeInternalKey(a), DecodeInternalKey(b))
	}
}

// InternalCompare orders two internal keys: by user key per userCmp, then by
// trailer descending (higher sequence number, and on a tie higher kind,
// sorts first) so the newest version of a key is encountered first in a
// forward scan.
func InternalCompare(userCmp Compare, a, b InternalKey) int {
	if c := userCmp(a.UserKey, b.UserKey); c != 0 {
		return c
	}
	switch {
	case a.Trailer > b.Trailer:
		return -1
	case a.Trailer < b.Trailer:
		return 1
	default:
		return 0
	}
}

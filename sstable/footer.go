// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found
// in the LICENSE file.

package sstable

import (
	"encoding/binary"
	"io"

	"github.com/zmyer/blocktable/internal/base"
)

// footer is the fixed-size trailer of ยง4.1: checksum kind, the metaindex
// and index block handles, a format version, and a magic number.
type footer struct {
	checksum    uint8
	metaindexBH BlockHandle
	indexBH     BlockHandle
}

// readFooter reads and validates the footer of a table of the given size,
// accessed through readAt. It rejects unknown magic numbers and unsupported
// format versions with ErrCorruption, per ยง7.
func readFooter(readAt func(p []byte, off int64) (int, error), fileSize int64) (footer, error) {
	var f footer
	if fileSize < minFooterLen {
		return f, base.CorruptionErrorf("blocktable: file size %d smaller than minimum footer length", fileSize)
	}

	buf := make([]byte, maxFooterLen)
	off := fileSize - maxFooterLen
	if off < 0 {
		off = 0
	}
	n, err := readAt(buf, off)
	if err != nil && err != io.EOF {
		return f, base.CorruptionErrorf("blocktable: could not read footer: %v", err)
	}
	buf = buf[:n]

	if len(buf) < rocksDBFooterLen || string(buf[len(buf)-len(rocksDBMagic):]) != rocksDBMagic {
		return f, base.CorruptionErrorf("blocktable: bad magic number")
	}
	buf = buf[len(buf)-rocksDBFooterLen:]

	version := binary.LittleEndian.Uint32(buf[rocksDBVersionOffset:rocksDBMagicOffset])
	if version != rocksDBFormatVersion {
		return f, base.CorruptionErrorf("blocktable: unsupported format version %d", version)
	}

	f.checksum = buf[0]
	if f.checksum != ChecksumCRC32c && f.checksum != ChecksumXXHash64 {
		return f, base.CorruptionErrorf("blocktable: unsupported checksum type %d", f.checksum)
	}
	buf = buf[1:]

	var m int
	f.metaindexBH, m = DecodeBlockHandle(buf)
	if m == 0 {
		return f, base.CorruptionErrorf("blocktable: bad metaindex block handle")
	}
	buf = buf[m:]

	f.indexBH, m = DecodeBlockHandle(buf)
	if m == 0 {
		return f, base.CorruptionErrorf("blocktable: bad index block handle")
	}

	return f, nil
}

// encode writes the footer's RocksDB-format-v2 on-disk representation. It
// is test-fixture-only: the write path is out of scope, but round-trip
// tests build tables in-process.
func (f footer) encode() []byte {
	buf := make([]byte, rocksDBFooterLen)
	buf[0] = f.checksum
	n := 1
	n += EncodeBlockHandle(buf[n:], f.metaindexBH)
	n += EncodeBlockHandle(buf[n:], f.indexBH)
	binary.LittleEndian.PutUint32(buf[rocksDBVersionOffset:], rocksDBFormatVersion)
	copy(buf[len(buf)-len(rocksDBMagic):], rocksDBMagic)
	return buf
}

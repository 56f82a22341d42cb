// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found
// in the LICENSE file.

package sstable

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/cespare/xxhash/v2"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/zmyer/blocktable/internal/base"
)

// block is the decompressed contents of one block: a sequence of
// (shared-prefix, key-suffix, value) entries followed by a restart-point
// trailer, as read by blockIter.
type block []byte

// checksum computes the trailer checksum for a block's compressed bytes (as
// laid out on disk: payload followed by the 1-byte compression tag) per the
// footer's declared checksum kind.
func checksum(kind uint8, data []byte) uint32 {
	switch kind {
	case ChecksumXXHash64:
		return uint32(xxhash.Sum64(data))
	default:
		return crc32.Checksum(data, crc32.MakeTable(crc32.Castagnoli))
	}
}

// readBlockRaw reads the handle.Length+trailer bytes for h via readAt,
// verifies the checksum if requested, and returns the still-possibly-
// compressed payload along with its compression tag. Corruption in the
// checksum or a short read is reported as ErrCorruption (ยง7).
func readBlockRaw(readAt func(p []byte, off int64) (int, error), h BlockHandle, checksumKind uint8, verifyChecksums bool) (payload []byte, compression byte, err error) {
	buf := make([]byte, h.Length+blockTrailerLen)
	n, rerr := readAt(buf, int64(h.Offset))
	if rerr != nil {
		return nil, 0, base.CorruptionErrorf("blocktable: short read of block at offset %d: %v", h.Offset, rerr)
	}
	if uint64(n) != h.Length+blockTrailerLen {
		return nil, 0, base.CorruptionErrorf("blocktable: short read of block at offset %d", h.Offset)
	}

	payload = buf[:h.Length]
	compression = buf[h.Length]
	if verifyChecksums {
		want := binary.LittleEndian.Uint32(buf[h.Length+1:])
		got := checksum(checksumKind, buf[:h.Length+1])
		if got != want {
			return nil, 0, base.CorruptionErrorf("blocktable: checksum mismatch at offset %d", h.Offset)
		}
	}
	return payload, compression, nil
}

// decompress expands payload according to its on-disk compression tag.
// compressionNone returns payload unmodified (no copy). An unrecognized
// tag is a format violation.
func decompress(payload []byte, compression byte) ([]byte, error) {
	switch compression {
	case compressionNone:
		return payload, nil
	case compressionSnappy:
		n, err := snappy.DecodedLen(payload)
		if err != nil {
			return nil, base.CorruptionErrorf("blocktable: invalid snappy block: %v", err)
		}
		decoded := make([]byte, n)
		decoded, err = snappy.Decode(decoded, payload)
		if err != nil {
			return nil, base.CorruptionErrorf("blocktable: snappy decompression failed: %v", err)
		}
		return decoded, nil
	case compressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, base.CorruptionErrorf("blocktable: zstd decoder init failed: %v", err)
		}
		defer dec.Close()
		decoded, err := dec.DecodeAll(payload, nil)
		if err != nil {
			return nil, base.CorruptionErrorf("blocktable: zstd decompression failed: %v", err)
		}
		return decoded, nil
	default:
		return nil, base.CorruptionErrorf("blocktable: unknown compression tag %d", compression)
	}
}

// readBlock performs the full ยง4.1 ReadBlock algorithm: read, verify, and
// (if requested) decompress. It does not consult any cache; callers in the
// data-block-iterator factory and Open are responsible for the cache tiers.
func readBlock(readAt func(p []byte, off int64) (int, error), h BlockHandle, checksumKind uint8, verifyChecksums bool) (block, error) {
	payload, compression, err := readBlockRaw(readAt, h, checksumKind, verifyChecksums)
	if err != nil {
		return nil, err
	}
	decoded, err := decompress(payload, compression)
	if err != nil {
		return nil, err
	}
	return block(decoded), nil
}

// blockWriter is test-fixture-only machinery: the write path is out of
// scope, but round-trip tests need to build real blocks with a real
// restart-point layout for blockIter to read back. Mirrors the teacher's
// sstable/block.go blockWriter.
type blockWriter struct {
	restartInterval int
	nEntries        int
	buf             []byte
	restarts        []uint32
	curKey, curVal  []byte
	prevKey         []byte
}

func newBlockWriter(restartInterval int) *blockWriter {
	return &blockWriter{restartInterval: restartInterval}
}

func (w *blockWriter) add(key, value []byte) {
	shared := 0
	if w.nEntries%w.restartInterval == 0 {
		w.restarts = append(w.restarts, uint32(len(w.buf)))
	} else {
		shared = base.SharedPrefixLen(w.prevKey, key)
	}

	var tmp [4 * binary.MaxVarintLen32]byte
	n := binary.PutUvarint(tmp[0:], uint64(shared))
	n += binary.PutUvarint(tmp[n:], uint64(len(key)-shared))
	n += binary.PutUvarint(tmp[n:], uint64(len(value)))
	w.buf = append(w.buf, tmp[:n]...)
	w.buf = append(w.buf, key[shared:]...)
	w.buf = append(w.buf, value...)

	w.prevKey = append(w.prevKey[:0], key...)
	w.nEntries++
}

func (w *blockWriter) finish() []byte {
	if w.nEntries == 0 {
		w.restarts = append(w.restarts, 0)
	}
	for _, r := range w.restarts {
		w.buf = append(w.buf, 0, 0, 0, 0)
		binary.LittleEndian.PutUint32(w.buf[len(w.buf)-4:], r)
	}
	w.buf = append(w.buf, 0, 0, 0, 0)
	binary.LittleEndian.PutUint32(w.buf[len(w.buf)-4:], uint32(len(w.restarts)))
	return w.buf
}

// compressBlock produces on-disk bytes (payload + trailer) for a finished block
// under the given compression tag and checksum kind, as a writer would.
func compressBlock(raw []byte, compression byte, checksumKind uint8) []byte {
	var payload []byte
	switch compression {
	case compressionNone:
		payload = raw
	case compressionSnappy:
		payload = snappy.Encode(nil, raw)
	case compressionZstd:
		enc, _ := zstd.NewWriter(nil)
		payload = enc.EncodeAll(raw, nil)
		enc.Close()
	default:
		panic("blocktable: unknown compression tag")
	}

	out := make([]byte, len(payload)+blockTrailerLen)
	copy(out, payload)
	out[len(payload)] = compression
	sum := checksum(checksumKind, out[:len(payload)+1])
	binary.LittleEndian.PutUint32(out[len(payload)+1:], sum)
	return out
}

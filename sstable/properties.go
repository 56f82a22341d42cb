// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found
// in the LICENSE file.

package sstable

import (
	"bytes"
	"encoding/binary"

	"github.com/zmyer/blocktable/internal/base"
)

// Properties holds the subset of the "rocksdb.properties" meta-block that
// this reader acts on (ยง6 "Properties of interest"), plus a handful of
// descriptive fields carried through from the original writer for
// diagnostics.
type Properties struct {
	IndexType         IndexType
	WholeKeyFiltering bool
	PrefixFiltering   bool

	ComparatorName   string
	FilterPolicyName string

	NumEntries    uint64
	RawKeySize    uint64
	RawValueSize  uint64
	DataSize      uint64
	IndexSize     uint64
	FilterSize    uint64
}

const (
	propIndexType         = "rocksdb.block.based.table.index.type"
	propWholeKeyFiltering = "rocksdb.whole.key.filtering"
	propPrefixFiltering   = "rocksdb.prefix.filtering"
	propComparator        = "rocksdb.comparator"
	propFilterPolicy      = "rocksdb.filter.policy"
	propNumEntries        = "rocksdb.num.entries"
	propRawKeySize        = "rocksdb.raw.key.size"
	propRawValueSize      = "rocksdb.raw.value.size"
	propDataSize          = "rocksdb.data.size"
	propIndexSize         = "rocksdb.index.size"
	propFilterSize        = "rocksdb.filter.size"
)

// parseProperties decodes a properties block (an ordinary block whose
// entries are string-keyed, restart-interval-1, with byte-string values)
// into a Properties struct. Per ยง4.6 step 5 and ยง7's degradation policy,
// a parse failure is never fatal: it is logged and the caller falls back
// to defaults (both booleans default to true for backward compatibility,
// meaning "missing means supported").
func parseProperties(b block, logger base.Logger) Properties {
	p := Properties{
		WholeKeyFiltering: true,
		PrefixFiltering:   true,
	}

	it, err := newBlockIter(bytes.Compare, b)
	if err != nil {
		logger.Errorf("blocktable: properties block parse failed: %v", err)
		return p
	}

	for valid := it.First(); valid; valid = it.Next() {
		key := string(it.Key())
		val := it.Value()
		switch key {
		case propIndexType:
			if len(val) == 4 {
				p.IndexType = IndexType(binary.LittleEndian.Uint32(val))
			}
		case propWholeKeyFiltering:
			p.WholeKeyFiltering = parseBoolProperty(val, logger, propWholeKeyFiltering)
		case propPrefixFiltering:
			p.PrefixFiltering = parseBoolProperty(val, logger, propPrefixFiltering)
		case propComparator:
			p.ComparatorName = string(val)
		case propFilterPolicy:
			p.FilterPolicyName = string(val)
		case propNumEntries:
			p.NumEntries, _ = binary.Uvarint(val)
		case propRawKeySize:
			p.RawKeySize, _ = binary.Uvarint(val)
		case propRawValueSize:
			p.RawValueSize, _ = binary.Uvarint(val)
		case propDataSize:
			p.DataSize, _ = binary.Uvarint(val)
		case propIndexSize:
			p.IndexSize, _ = binary.Uvarint(val)
		case propFilterSize:
			p.FilterSize, _ = binary.Uvarint(val)
		}
	}
	if it.Error() != nil {
		logger.Errorf("blocktable: properties block parse failed: %v", it.Error())
		return Properties{WholeKeyFiltering: true, PrefixFiltering: true}
	}
	return p
}

// parseBoolProperty implements ยง6's rule: "0" is false, "1" or absent is
// true, and any other value logs a warning and is treated as true.
func parseBoolProperty(val []byte, logger base.Logger, name string) bool {
	switch string(val) {
	case "0":
		return false
	case "1":
		return true
	default:
		logger.Errorf("blocktable: unrecognized value %q for property %s, treating as true", val, name)
		return true
	}
}

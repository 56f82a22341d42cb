// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found
// in the LICENSE file.

package sstable

import (
	"bytes"

	"github.com/zmyer/blocktable/internal/base"
)

// parseMetaIndex decodes the meta-index block (ยง3 "Meta-index") into a map
// from well-known name to block handle. Entries whose value fails to
// decode as a block handle are skipped with a logged warning rather than
// failing Open, matching ยง7's degradation policy for meta-block issues.
func parseMetaIndex(b block, logger base.Logger) (map[string]BlockHandle, error) {
	it, err := newBlockIter(bytes.Compare, b)
	if err != nil {
		return nil, base.CorruptionErrorf("blocktable: meta-index block: %v", err)
	}

	m := make(map[string]BlockHandle)
	for valid := it.First(); valid; valid = it.Next() {
		h, n := DecodeBlockHandle(it.Value())
		if n == 0 {
			logger.Errorf("blocktable: meta-index entry %q has an undecodable handle", it.Key())
			continue
		}
		m[string(it.Key())] = h
	}
	if it.Error() != nil {
		return nil, base.CorruptionErrorf("blocktable: meta-index block: %v", it.Error())
	}
	return m, nil
}

// findFilterHandle scans meta for a filter block under the fixed
// fullfilter/filter/fixedsizefilter precedence of ยง4.6 step 4 and ยง9's
// decided open question, returning the first match.
func findFilterHandle(meta map[string]BlockHandle, policyName string) (BlockHandle, FilterType, bool) {
	for _, candidate := range filterPrefixScanOrder {
		if h, ok := meta[candidate.prefix+policyName]; ok {
			return h, candidate.typ, true
		}
	}
	return BlockHandle{}, FilterTypeNone, false
}

// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found
// in the LICENSE file.

package sstable

import "github.com/zmyer/blocktable/internal/cache"

// cacheKeyPrefix is the per-reader identity (ยง3 "Cache key") that, combined
// with a block's offset, uniquely identifies that block across every
// table sharing the same cache instances. A Reader reads a single file and
// holds one prefix for it; there is no separate base (metadata) file with a
// prefix of its own. The same Key is used in both the uncompressed and the
// compressed cache.
type cacheKeyPrefix uint64

func dataBlockCacheKey(prefix cacheKeyPrefix, h BlockHandle) cache.Key {
	return cache.Key{FileKey: uint64(prefix), Offset: h.Offset}
}

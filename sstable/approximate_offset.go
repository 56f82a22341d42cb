// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found
// in the LICENSE file.

package sstable

import "github.com/zmyer/blocktable/internal/base"

// ApproximateOffsetOf returns the approximate file offset at which key
// would be found, per SPEC_FULL ยง12: the offset of the data block the
// index maps key to, or the index block's own offset (roughly end of
// data) once key sorts past every index entry. It never performs I/O
// beyond the index, which is expected to be cheap to have resident.
func (r *Reader) ApproximateOffsetOf(key []byte) (uint64, error) {
	idx, release, err := r.indexReader(DefaultReadOptions())
	if err != nil {
		return 0, err
	}
	defer release()

	it := idx.NewIterator(true)
	searchKey := base.MakeSearchKey(key)
	encoded := make([]byte, searchKey.Size())
	searchKey.Encode(encoded)

	if !it.SeekGE(encoded) {
		return r.footer.indexBH.Offset, nil
	}
	h, n := DecodeBlockHandle(it.Value())
	if n == 0 {
		return 0, base.CorruptionErrorf("blocktable: undecodable data block handle in index")
	}
	return h.Offset, nil
}

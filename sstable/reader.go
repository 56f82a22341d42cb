// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found
// in the LICENSE file.

package sstable

import (
	"io"

	"github.com/zmyer/blocktable/internal/base"
	"github.com/zmyer/blocktable/internal/cache"
)

// compressedBlockValue is what the compressed-block cache tier stores: the
// still-compressed payload plus its compression tag, so a hit can
// decompress fresh each time without re-reading the file.
type compressedBlockValue struct {
	payload     []byte
	compression byte
}

// Reader is a live handle on an opened table: the parsed footer and
// meta-index, the table's properties, and (depending on Options) either a
// pre-loaded index/filter or enough state to rebuild them on demand
// through the cache. It corresponds to the spec's single opaque "Rep".
type Reader struct {
	file     io.ReaderAt
	fileSize int64
	opts     *Options
	// cmp orders encoded internal keys (user key + trailer), as used by
	// the data-block and main-index block iterators. userCmp is the plain
	// comparator over user keys alone, used wherever a block's keys are
	// not internal keys (the fixed-size filter index, Prefetch's bounds).
	cmp     base.Compare
	userCmp base.Compare
	split   base.Split
	logger  base.Logger

	footer         footer
	cacheKeyPrefix cacheKeyPrefix

	meta       map[string]BlockHandle
	Properties Properties

	filterType   FilterType
	filterHandle BlockHandle

	// preloadedIndex and preloadedFilter are non-nil only when
	// Options.PrefetchIndexAndFilter is set and
	// Options.CacheIndexAndFilterBlocks is not (ยง4.6 step 6): they are
	// then owned for the Reader's lifetime rather than sourced through
	// the cache on every access.
	preloadedIndex  IndexReader
	preloadedFilter FilterReader

	// filterIndexReader is built eagerly whenever the filter is
	// fixed-size, whether or not prefetching is requested; it is always a plain
	// binary-search reader over the lightweight filter-index block, never
	// the (potentially numerous) individual filter blocks themselves.
	filterIndexReader *fixedSizeFilterReader

	hashIndexAuxBlock block // raw bytes, kept to rebuild hashIndexReader lazily
	indexIsHash       bool

	closed bool
}

func (r *Reader) readAt(p []byte, off int64) (int, error) {
	return r.file.ReadAt(p, off)
}

// NewReader parses footer, meta-index, and properties, and optionally
// warms or pre-loads the index and filter, per ยง4.6 Open.
func NewReader(file io.ReaderAt, fileSize int64, opts *Options) (*Reader, error) {
	opts = opts.EnsureDefaults()

	f, err := readFooter(func(p []byte, off int64) (int, error) { return file.ReadAt(p, off) }, fileSize)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		file:           file,
		fileSize:       fileSize,
		opts:           opts,
		cmp:            base.InternalKeyCompare(opts.Comparer.Compare),
		userCmp:        opts.Comparer.Compare,
		split:          opts.Split,
		logger:         opts.Logger,
		footer:         f,
		cacheKeyPrefix: cacheKeyPrefix(allocFileKey(opts)),
	}

	metaBlock, err := readBlock(r.readAt, f.metaindexBH, f.checksum, true)
	if err != nil {
		return nil, err
	}
	r.meta, err = parseMetaIndex(metaBlock, r.logger)
	if err != nil {
		return nil, err
	}

	if propsBH, ok := r.meta[metaPropertiesName]; ok {
		propsBlock, err := readBlock(r.readAt, propsBH, f.checksum, true)
		if err != nil {
			r.logger.Errorf("blocktable: failed to read properties block: %v", err)
			r.Properties = Properties{WholeKeyFiltering: true, PrefixFiltering: true}
		} else {
			r.Properties = parseProperties(propsBlock, r.logger)
		}
	} else {
		r.Properties = Properties{WholeKeyFiltering: true, PrefixFiltering: true}
	}

	if r.Properties.IndexType > IndexTypeTwoLevel {
		return nil, base.InvalidArgumentErrorf("blocktable: unknown index type %d", r.Properties.IndexType)
	}

	if !opts.SkipFilters && opts.FilterPolicyName != "" {
		if h, typ, ok := findFilterHandle(r.meta, opts.FilterPolicyName); ok {
			r.filterType = typ
			r.filterHandle = h
		} else {
			r.filterType = FilterTypeNone
		}
	}

	r.indexIsHash = r.Properties.IndexType == IndexTypeHashSearch && r.split != nil
	if r.Properties.IndexType == IndexTypeHashSearch && r.split == nil {
		r.logger.Infof("blocktable: index type is hash search but no prefix extractor configured, falling back to binary search")
	}
	if r.indexIsHash {
		if h, ok := r.meta[metaHashIndexPrefixesMeta]; ok {
			auxBlock, err := readBlock(r.readAt, h, f.checksum, true)
			if err != nil {
				r.logger.Errorf("blocktable: failed to read hash index auxiliary, falling back to binary search: %v", err)
				r.indexIsHash = false
			} else {
				r.hashIndexAuxBlock = auxBlock
			}
		} else {
			r.indexIsHash = false
		}
	}

	// The fixed-size filter index is always built eagerly, regardless of
	// PrefetchIndexAndFilter: it is the lightweight binary-search index
	// over filter-block handles, not the (potentially numerous and much
	// larger) filter blocks themselves, which are fetched lazily through
	// cache on demand.
	if r.filterType == FilterTypeFixedSize {
		filterIdxBlock, err := readBlock(r.readAt, r.filterHandle, f.checksum, true)
		if err != nil {
			r.logger.Errorf("blocktable: failed to read fixed-size filter index, disabling filtering: %v", err)
			r.filterType = FilterTypeNone
		} else {
			r.filterIndexReader = newFixedSizeFilterReader(r.userCmp, filterIdxBlock, r.fetchFilterBlockBytes)
		}
	}

	if opts.PrefetchIndexAndFilter {
		if !opts.CacheIndexAndFilterBlocks {
			idxBlock, err := readBlock(r.readAt, f.indexBH, f.checksum, true)
			if err != nil {
				return nil, err
			}
			if r.indexIsHash {
				r.preloadedIndex = newHashIndexReader(r.cmp, idxBlock, r.hashIndexAuxBlock, r.split, r.logger, opts.HashIndexAllowCollision)
			} else {
				r.preloadedIndex = newBinarySearchIndexReader(r.cmp, idxBlock)
			}

			if r.filterType == FilterTypeFull || r.filterType == FilterTypeBlockBased {
				filterBlock, err := readBlock(r.readAt, r.filterHandle, f.checksum, true)
				if err != nil {
					r.logger.Errorf("blocktable: failed to read filter block, disabling filtering: %v", err)
					r.filterType = FilterTypeNone
				} else if r.filterType == FilterTypeFull {
					r.preloadedFilter = newFullFilterReader(filterBlock)
				} else {
					bbr, err := newBlockBasedFilterReader(filterBlock)
					if err != nil {
						r.logger.Errorf("blocktable: failed to parse block-based filter, disabling filtering: %v", err)
						r.filterType = FilterTypeNone
					} else {
						r.preloadedFilter = bbr
					}
				}
			}
		} else {
			// Cache-primed warmup: touch the index and (non-fixed) filter
			// once so a cold cache gets populated; the actual readers are
			// rebuilt through the cache on every real access.
			if _, release, err := r.indexReader(DefaultReadOptions()); err == nil {
				release()
			}
			if r.filterType == FilterTypeFull || r.filterType == FilterTypeBlockBased {
				if _, release, err := r.filterReader(DefaultReadOptions()); err == nil {
					release()
				}
			}
		}
	}

	return r, nil
}

func allocFileKey(opts *Options) uint64 {
	if opts.Cache != nil {
		return opts.Cache.NewFileKey()
	}
	if opts.CompressedCache != nil {
		return opts.CompressedCache.NewFileKey()
	}
	return 0
}

// fetchBlock implements ยง4.7 steps 2-4: try the uncompressed cache, then
// the compressed cache (decompressing and promoting on hit), then the
// file, honoring no_io. It is the shared core behind data blocks, the
// index block, and full/block-based filter blocks.
func (r *Reader) fetchBlock(h BlockHandle, opts *ReadOptions) (data []byte, release func(), err error) {
	key := dataBlockCacheKey(r.cacheKeyPrefix, h)

	if r.opts.Cache != nil {
		if ch, ok := r.opts.Cache.Lookup(key, opts.QueryID); ok {
			return ch.Value().([]byte), func() { r.opts.Cache.Release(ch) }, nil
		}
	}

	if r.opts.CompressedCache != nil {
		if ch, ok := r.opts.CompressedCache.Lookup(key, opts.QueryID); ok {
			cv := ch.Value().(compressedBlockValue)
			decoded, derr := decompress(cv.payload, cv.compression)
			r.opts.CompressedCache.Release(ch)
			if derr != nil {
				return nil, nil, derr
			}
			return r.fillUncompressed(key, decoded, opts)
		}
	}

	if opts.noIO() {
		return nil, nil, base.IncompleteErrorf("blocktable: block at offset %d not resident (no_io)", h.Offset)
	}

	if r.opts.CompressedCache != nil {
		payload, compression, rerr := readBlockRaw(r.readAt, h, r.footer.checksum, opts.VerifyChecksums)
		if rerr != nil {
			return nil, nil, rerr
		}
		if opts.FillCache {
			stored := compressedBlockValue{payload: append([]byte(nil), payload...), compression: compression}
			ch, _ := r.opts.CompressedCache.Insert(key, opts.QueryID, stored, int64(len(payload)), nil)
			r.opts.CompressedCache.Release(ch)
		}
		decoded, derr := decompress(payload, compression)
		if derr != nil {
			return nil, nil, derr
		}
		return r.fillUncompressed(key, decoded, opts)
	}

	decoded, rerr := readBlock(r.readAt, h, r.footer.checksum, opts.VerifyChecksums)
	if rerr != nil {
		return nil, nil, rerr
	}
	return r.fillUncompressed(key, []byte(decoded), opts)
}

func (r *Reader) fillUncompressed(key cache.Key, data []byte, opts *ReadOptions) ([]byte, func(), error) {
	if r.opts.Cache != nil && opts.FillCache {
		ch, _ := r.opts.Cache.Insert(key, opts.QueryID, data, int64(len(data)), nil)
		return data, func() { r.opts.Cache.Release(ch) }, nil
	}
	return data, func() {}, nil
}

// fetchFilterBlockBytes reads a fixed-size filter block by handle, going
// through the same cache tiers as a data block (ยง4.5: "fetches that
// filter block through cache"). It is held as a closure so
// fixedSizeFilterReader does not need to know about Reader's internals.
// opts is threaded through so callers that must respect no_io (Get,
// PrefixMayMatch) can, while BloomFilterAwareIterator's always-IO path
// passes DefaultReadOptions().
func (r *Reader) fetchFilterBlockBytes(h BlockHandle, opts *ReadOptions) ([]byte, error) {
	data, release, err := r.fetchBlock(h, opts)
	if err != nil {
		return nil, err
	}
	release()
	return data, nil
}

// indexReader resolves the table's IndexReader for one call, returning a
// release function that must be invoked exactly once when the caller is
// done with any iterator built from it.
func (r *Reader) indexReader(opts *ReadOptions) (IndexReader, func(), error) {
	if r.preloadedIndex != nil {
		return r.preloadedIndex, func() {}, nil
	}
	data, release, err := r.fetchBlock(r.footer.indexBH, opts)
	if err != nil {
		return nil, nil, err
	}
	if r.indexIsHash {
		return newHashIndexReader(r.cmp, data, r.hashIndexAuxBlock, r.split, r.logger, r.opts.HashIndexAllowCollision), release, nil
	}
	return newBinarySearchIndexReader(r.cmp, data), release, nil
}

// filterReader resolves the table's non-fixed-size FilterReader for one
// call. Callers must check filterType != FilterTypeFixedSize before using
// this; fixed-size filters are only accessed via filterIndexReader.
func (r *Reader) filterReader(opts *ReadOptions) (FilterReader, func(), error) {
	if r.preloadedFilter != nil {
		return r.preloadedFilter, func() {}, nil
	}
	data, release, err := r.fetchBlock(r.filterHandle, opts)
	if err != nil {
		return nil, nil, err
	}
	if r.filterType == FilterTypeFull {
		return newFullFilterReader(data), release, nil
	}
	bbr, err := newBlockBasedFilterReader(data)
	if err != nil {
		release()
		return nil, nil, err
	}
	return bbr, release, nil
}

// ApproximateMemoryUsage sums the footprint of any pre-loaded index and
// filter readers.
func (r *Reader) ApproximateMemoryUsage() int {
	n := 0
	if r.preloadedIndex != nil {
		n += r.preloadedIndex.ApproximateMemoryUsage()
	}
	if r.preloadedFilter != nil {
		n += r.preloadedFilter.ApproximateMemoryUsage()
	}
	if r.filterIndexReader != nil {
		n += r.filterIndexReader.ApproximateMemoryUsage()
	}
	return n
}

// Close releases any resources the Reader directly owns. It does not close
// the underlying file, whose lifetime is the caller's responsibility.
func (r *Reader) Close() error {
	r.closed = true
	return nil
}

// Copyright 2011 The LevelDB-Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package base

import (
	"github.com/cockroachdb/errors"
)

// Sentinel errors forming the taxonomy of ยง7: callers distinguish them with
// errors.Is, and every wrapper below wraps its sentinel with formatted
// context via cockroachdb/errors, so the sentinel is found both by that
// package's errors.Is and by the standard library's.
var (
	// ErrCorruption marks a format violation: bad magic, bad version, a
	// checksum mismatch, a bad compression tag, or an undecodable handle.
	ErrCorruption = errors.New("blocktable: corruption")

	// ErrNotFound is returned by Get when no entry for the key exists. It
	// is also represented structurally by iterator invalidity with a nil
	// error; Get surfaces it explicitly so callers can use errors.Is.
	ErrNotFound = errors.New("blocktable: not found")

	// ErrInvalidArgument marks a caller error such as Prefetch(begin, end)
	// with begin > end, or an unrecognized index type on file.
	ErrInvalidArgument = errors.New("blocktable: invalid argument")

	// ErrIncomplete marks a no_io read that required a block that was not
	// resident in cache. Get turns this into MarkKeyMayExist semantics
	// rather than propagating it as a hard failure.
	ErrIncomplete = errors.New("blocktable: incomplete (no_io)")
)

// CorruptionErrorf wraps ErrCorruption with formatted, safe-detail context.
func CorruptionErrorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrCorruption, format, args...)
}

// InvalidArgumentErrorf wraps ErrInvalidArgument with formatted context.
func InvalidArgumentErrorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}

// IncompleteErrorf wraps ErrIncomplete with formatted context.
func IncompleteErrorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrIncomplete, format, args...)
}

// IsCorruptionError reports whether err is, or wraps, ErrCorruption.
func IsCorruptionError(err error) bool {
	return errors.Is(err, ErrCorruption)
}

// IsIncompleteError reports whether err is, or wraps, ErrIncomplete.
func IsIncompleteError(err error) bool {
	return errors.Is(err, ErrIncomplete)
}

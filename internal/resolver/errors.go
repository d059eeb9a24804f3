package resolver

import "errors"

// ErrMissingBlock is returned when the compacted block at a required
// height is absent from the store.
var ErrMissingBlock = errors.New("resolver: missing block")

// ErrOrphanReference is returned when a transaction cursor cannot be
// matched against any transaction in the block it names.
var ErrOrphanReference = errors.New("resolver: orphan reference")

// ErrCorruptBlock is returned when a compacted block's input values
// never accumulate to cover the requested output, which can only
// happen if the stored blob violates the compaction invariants.
var ErrCorruptBlock = errors.New("resolver: corrupt compacted block")

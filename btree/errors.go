package btree

import "errors"

var (
	// ErrInvalidOrder is a UsageError: order must be at least 3 (spec §4.3.1).
	ErrInvalidOrder = errors.New("btree: order must be >= 3")
	// ErrNotOpen is a UsageError: operation attempted on a closed tree.
	ErrNotOpen = errors.New("btree: tree is not open")
	// ErrCorruptMetadata is a DataError: the trailing metadata record at
	// size()-META_SIZE did not decode, per spec §4.3.4.
	ErrCorruptMetadata = errors.New("btree: corrupt metadata record")
	// ErrRangeInverted is a UsageError: rangeSearch min was greater than max.
	ErrRangeInverted = errors.New("btree: range min is greater than max")
)

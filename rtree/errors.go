package rtree

import "errors"

var (
	// ErrInvalidOrder is a UsageError: maxEntries must be at least 3.
	ErrInvalidOrder = errors.New("rtree: maxEntries must be >= 3")
	// ErrNotOpen is a UsageError: operation attempted on a closed tree.
	ErrNotOpen = errors.New("rtree: tree is not open")
	// ErrCorruptMetadata is a DataError: the trailing metadata record did
	// not decode, per spec §4.4.4.
	ErrCorruptMetadata = errors.New("rtree: corrupt metadata record")
)

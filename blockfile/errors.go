package blockfile

import "errors"

// UsageErrors per spec §7: programmer mistakes, not data corruption.
var (
	ErrAlreadyOpen = errors.New("blockfile: file already open by another handle")
	ErrNotOpen     = errors.New("blockfile: handle is not open")
	ErrReadOnly    = errors.New("blockfile: handle opened read-only")
)

// ErrNotFound is returned opening a missing path in read-only mode.
var ErrNotFound = errors.New("blockfile: path does not exist")

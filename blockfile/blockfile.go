// Package blockfile implements the append-only, random-access file
// abstraction of spec §4.2: scoped exclusive acquisition, offset reads and
// writes, and a lazy record scan built on the record codec's self-delimiting
// size discipline.
//
// Unlike the teacher (sirgallo/mari), which maps the backing file into
// process memory and does all bookkeeping through atomic pointers into that
// map, BlockFile addresses the file with plain ReadAt/WriteAt. Spec §4.2
// defines the contract as a random-access file abstraction, not a memory
// map, and spec §5's single-threaded cooperative model has no resize race
// to guard against the way the teacher's mmap growth does.
package blockfile

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// Mode selects whether a BlockFile permits mutation.
type Mode int

const (
	ReadOnly Mode = iota
	ReadWrite
)

// BlockFile exclusively owns a single backing file handle. A second Open of
// the same path fails with ErrAlreadyOpen while the first handle is live.
type BlockFile struct {
	path   string
	mode   Mode
	file   *os.File
	locked bool
	closed bool
}

// Open acquires a scoped, exclusive handle on path. In ReadOnly mode the
// path must already exist. In ReadWrite mode it is created if missing.
func Open(path string, mode Mode) (*BlockFile, error) {
	flag := os.O_RDONLY
	if mode == ReadWrite {
		flag = os.O_RDWR | os.O_CREATE
	}

	if mode == ReadOnly {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return nil, ErrNotFound
			}
			return nil, errors.Wrap(err, "blockfile: stat")
		}
	}

	file, err := os.OpenFile(path, flag, 0o600)
	if err != nil {
		return nil, errors.Wrap(err, "blockfile: open")
	}

	if lockErr := tryLockExclusive(file); lockErr != nil {
		file.Close()
		if errors.Is(lockErr, errAlreadyLocked) {
			return nil, ErrAlreadyOpen
		}
		return nil, errors.Wrap(lockErr, "blockfile: lock")
	}

	return &BlockFile{path: path, mode: mode, file: file, locked: true}, nil
}

// Close releases the exclusive handle. Safe to call more than once.
func (b *BlockFile) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true

	var flushErr error
	if b.mode == ReadWrite {
		flushErr = b.file.Sync()
	}

	if b.locked {
		unlockExclusive(b.file)
		b.locked = false
	}

	closeErr := b.file.Close()
	if flushErr != nil {
		return errors.Wrap(flushErr, "blockfile: flush on close")
	}
	if closeErr != nil {
		return errors.Wrap(closeErr, "blockfile: close")
	}
	return nil
}

// Path returns the backing file path.
func (b *BlockFile) Path() string { return b.path }

// Size returns the current byte length of the backing file.
func (b *BlockFile) Size() (uint64, error) {
	if b.closed {
		return 0, ErrNotOpen
	}
	stat, err := b.file.Stat()
	if err != nil {
		return 0, errors.Wrap(err, "blockfile: stat")
	}
	return uint64(stat.Size()), nil
}

// ReadRange reads length bytes starting at offset. Fewer bytes than
// requested are returned only at end of file, per spec §4.2.
func (b *BlockFile) ReadRange(offset, length uint64) ([]byte, error) {
	if b.closed {
		return nil, ErrNotOpen
	}
	if length == 0 {
		return nil, nil
	}

	buf := make([]byte, length)
	n, err := b.file.ReadAt(buf, int64(offset))
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "blockfile: read")
	}
	return buf[:n], nil
}

// WriteAt writes exactly len(data) bytes at offset. The caller owns
// placement; BlockFile never reorders or coalesces writes.
func (b *BlockFile) WriteAt(offset uint64, data []byte) error {
	if b.closed {
		return ErrNotOpen
	}
	if b.mode == ReadOnly {
		return ErrReadOnly
	}
	if _, err := b.file.WriteAt(data, int64(offset)); err != nil {
		return errors.Wrap(err, "blockfile: write")
	}
	return nil
}

// Append writes data past the current end of file and returns the offset
// the write began at (the pre-append size), per spec §4.2.
func (b *BlockFile) Append(data []byte) (uint64, error) {
	if b.closed {
		return 0, ErrNotOpen
	}
	if b.mode == ReadOnly {
		return 0, ErrReadOnly
	}

	size, err := b.Size()
	if err != nil {
		return 0, err
	}
	if err := b.WriteAt(size, data); err != nil {
		return 0, err
	}
	return size, nil
}

// Truncate resizes the backing file to newSize.
func (b *BlockFile) Truncate(newSize uint64) error {
	if b.closed {
		return ErrNotOpen
	}
	if b.mode == ReadOnly {
		return ErrReadOnly
	}
	if err := b.file.Truncate(int64(newSize)); err != nil {
		return errors.Wrap(err, "blockfile: truncate")
	}
	return nil
}

// Flush is a durability barrier: bytes already written are guaranteed to
// reach the underlying medium once Flush returns without error.
func (b *BlockFile) Flush() error {
	if b.closed {
		return ErrNotOpen
	}
	if b.mode == ReadOnly {
		return nil
	}
	if err := b.file.Sync(); err != nil {
		return errors.Wrap(err, "blockfile: flush")
	}
	return nil
}

// Exists reports whether path names an existing file.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Delete removes the file at path; a missing file is not an error. Used by
// Compact to clear an existing destination file before rewriting, and by
// the R-tree's Clear.
func Delete(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "blockfile: delete")
	}
	return nil
}

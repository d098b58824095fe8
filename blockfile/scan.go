package blockfile

import (
	"github.com/perdixdb/perdix/record"
)

// Scanner iterates successive top-level records in a BlockFile using
// record.SizeAt, per spec §4.2. It is finite and single-pass; a malformed
// record halts iteration (Next reports ok=false) and is reported by Err.
type Scanner struct {
	bf     *BlockFile
	offset uint64
	size   uint64
	err    error
	done   bool
}

// Scan begins a fresh scan of the file from offset 0.
func (b *BlockFile) Scan() (*Scanner, error) {
	size, err := b.Size()
	if err != nil {
		return nil, err
	}
	return &Scanner{bf: b, size: size}, nil
}

// Next returns the next record's value and its starting offset. ok is false
// once the scan is exhausted; check Err afterward to distinguish a clean
// end from a malformed-record failure.
func (s *Scanner) Next() (record.Value, uint64, bool) {
	if s.done || s.err != nil {
		return record.Value{}, 0, false
	}
	if s.offset >= s.size {
		s.done = true
		return record.Value{}, 0, false
	}

	start := s.offset
	length, err := record.SizeAt(s.bf, start)
	if err != nil {
		s.err = err
		s.done = true
		return record.Value{}, 0, false
	}

	data, err := s.bf.ReadRange(start, length)
	if err != nil {
		s.err = err
		s.done = true
		return record.Value{}, 0, false
	}
	if uint64(len(data)) != length {
		s.err = record.ErrUnexpectedEof
		s.done = true
		return record.Value{}, 0, false
	}

	v, err := record.Decode(data)
	if err != nil {
		s.err = err
		s.done = true
		return record.Value{}, 0, false
	}

	s.offset = start + length
	return v, start, true
}

// Err reports the error (if any) that ended the scan.
func (s *Scanner) Err() error { return s.err }

//go:build unix

package blockfile

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

var errAlreadyLocked = errors.New("blockfile: already locked")

// tryLockExclusive acquires a non-blocking exclusive flock(2) on file, the
// OS-enforced realization of spec §4.2's "second open attempt fails with
// AlreadyOpen." This is the one piece of the teacher's mmap-era
// golang.org/x/sys dependency perdix keeps: repurposed from mmap syscalls
// to the advisory-lock syscall that gives exclusivity real teeth across
// processes, not just within one.
func tryLockExclusive(file *os.File) error {
	err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err != nil {
		if errors.Is(err, unix.EWOULDBLOCK) {
			return errAlreadyLocked
		}
		return err
	}
	return nil
}

func unlockExclusive(file *os.File) {
	unix.Flock(int(file.Fd()), unix.LOCK_UN)
}

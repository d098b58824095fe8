//go:build !unix

package blockfile

import (
	"errors"
	"os"
)

var errAlreadyLocked = errors.New("blockfile: already locked")

// tryLockExclusive falls back to a sentinel lock file on platforms without
// flock(2). O_EXCL makes the create-lockfile step itself atomic.
func tryLockExclusive(file *os.File) error {
	lockPath := file.Name() + ".lock"
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return errAlreadyLocked
		}
		return err
	}
	f.Close()
	return nil
}

func unlockExclusive(file *os.File) {
	os.Remove(file.Name() + ".lock")
}

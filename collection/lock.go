package collection

import (
	"fmt"
	"os"

	"ferret/ferrerr"

	"golang.org/x/sys/unix"
)

// fileLock holds a POSIX flock on a collection's lock file for the
// lifetime of a write session.
type fileLock struct {
	f *os.File
}

// acquireLock takes a non-blocking exclusive flock on path, failing with
// ConflictingWrite if another writer already holds it.
func acquireLock(path string) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, ferrerr.IO(fmt.Sprintf("opening lock file %s", path), err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, ferrerr.ConflictingWrite(fmt.Sprintf("collection lock %s held by another writer", path), err)
	}
	return &fileLock{f: f}, nil
}

func (l *fileLock) release() error {
	if err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN); err != nil {
		l.f.Close()
		return ferrerr.IO("releasing collection lock", err)
	}
	return l.f.Close()
}

package fsutil

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// FileLock is a whole-file, blocking, exclusive advisory lock backed by
// flock(2). It covers exactly one critical section's worth of work per
// Lock/Unlock pair and is released automatically if the holding process
// exits without calling Unlock (the OS drops the flock on close).
type FileLock struct {
	path string
	f    *os.File
}

// NewFileLock returns an unacquired lock on the file at path without
// touching the filesystem; Lock opens (creating if necessary) the file.
// The file is never written to; its only purpose is to be flock'd.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

// Lock blocks until the exclusive lock is acquired.
func (l *FileLock) Lock() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return errors.Wrapf(err, "open lock file %s", l.path)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return errors.Wrapf(err, "flock %s", l.path)
	}
	l.f = f
	return nil
}

// Unlock releases the lock and closes the underlying file descriptor.
func (l *FileLock) Unlock() error {
	if l.f == nil {
		return nil
	}
	err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	cerr := l.f.Close()
	l.f = nil
	if err != nil {
		return errors.Wrapf(err, "unlock %s", l.path)
	}
	return cerr
}

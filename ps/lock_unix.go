//go:build unix

package ps

import (
	"errors"

	"github.com/go-git/go-billy/v6"
	"golang.org/x/sys/unix"
)

// fder is implemented by osfs files.
type fder interface {
	Fd() (uintptr, bool)
}

// lockFile takes an exclusive advisory lock on file without blocking.
// Files without a descriptor (memfs) fall back to billy.Locker, if any.
func lockFile(file billy.File) error {
	if f, ok := file.(fder); ok {
		if fd, ok := f.Fd(); ok {
			err := unix.Flock(int(fd), unix.LOCK_EX|unix.LOCK_NB)
			if errors.Is(err, unix.EWOULDBLOCK) {
				return ErrLocked
			}
			return err
		}
	}
	if locker, ok := file.(billy.Locker); ok {
		return locker.Lock()
	}
	return nil
}

//go:build !windows

package cache

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// flock applies how to f, retrying when interrupted by a signal.
// flock(2) locks belong to the open file description, so two descriptors of
// the same file conflict even inside one process.
func flock(f *os.File, how int) error {
	for {
		err := unix.Flock(int(f.Fd()), how) //nolint:gosec // G115: fd fits in int
		if !errors.Is(err, unix.EINTR) {
			return err
		}
	}
}

// lockShared blocks until a shared lock on f is held.
func lockShared(f *os.File) error {
	if err := flock(f, unix.LOCK_SH); err != nil {
		return fmt.Errorf("failed to acquire shared lock on %s: %w", f.Name(), err)
	}
	return nil
}

// lockExclusive blocks until an exclusive lock on f is held. A shared lock
// already held through f is converted; the conversion is not atomic.
func lockExclusive(f *os.File) error {
	if err := flock(f, unix.LOCK_EX); err != nil {
		return fmt.Errorf("failed to acquire exclusive lock on %s: %w", f.Name(), err)
	}
	return nil
}

// tryLockExclusive attempts a non-blocking exclusive lock. It reports false
// without error when another descriptor holds a conflicting lock.
func tryLockExclusive(f *os.File) (bool, error) {
	err := flock(f, unix.LOCK_EX|unix.LOCK_NB)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EAGAIN) {
		return false, nil
	}
	return false, fmt.Errorf("failed to acquire lock on %s: %w", f.Name(), err)
}

// unlock releases any lock held through f. Closing f has the same effect.
func unlock(f *os.File) error {
	return flock(f, unix.LOCK_UN)
}

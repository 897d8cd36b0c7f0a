//go:build windows

package cache

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

// The whole entry is guarded by a lock on its first byte.
const lockBytes = 1

func lockFile(f *os.File, flags uint32) error {
	ol := new(windows.Overlapped)
	return windows.LockFileEx(windows.Handle(f.Fd()), flags, 0, lockBytes, 0, ol)
}

// lockShared blocks until a shared lock on f is held.
func lockShared(f *os.File) error {
	if err := lockFile(f, 0); err != nil {
		return fmt.Errorf("failed to acquire shared lock on %s: %w", f.Name(), err)
	}
	return nil
}

// lockExclusive blocks until an exclusive lock on f is held. LockFileEx does
// not convert locks, so a shared lock held through f is released first.
func lockExclusive(f *os.File) error {
	_ = unlock(f)
	if err := lockFile(f, windows.LOCKFILE_EXCLUSIVE_LOCK); err != nil {
		return fmt.Errorf("failed to acquire exclusive lock on %s: %w", f.Name(), err)
	}
	return nil
}

// tryLockExclusive attempts a non-blocking exclusive lock.
func tryLockExclusive(f *os.File) (bool, error) {
	err := lockFile(f, windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, windows.ERROR_LOCK_VIOLATION) || errors.Is(err, windows.ERROR_IO_PENDING) {
		return false, nil
	}
	return false, fmt.Errorf("failed to acquire lock on %s: %w", f.Name(), err)
}

// unlock releases the lock held through f.
func unlock(f *os.File) error {
	ol := new(windows.Overlapped)
	return windows.UnlockFileEx(windows.Handle(f.Fd()), 0, lockBytes, 0, ol)
}

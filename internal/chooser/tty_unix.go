//go:build !windows

package chooser

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// minColumns is the narrowest terminal the builtin chooser draws on.
const minColumns = 20

// checkTTY verifies that /dev/tty is openable.
func checkTTY() error {
	f, err := os.Open("/dev/tty")
	if err != nil {
		return fmt.Errorf("no TTY available: %w", err)
	}
	f.Close()
	return nil
}

// checkTermWidth verifies that the terminal is at least minColumns wide.
func checkTermWidth() error {
	f, err := os.Open("/dev/tty")
	if err != nil {
		return fmt.Errorf("cannot check terminal width: %w", err)
	}
	defer f.Close()

	ws, err := unix.IoctlGetWinsize(int(f.Fd()), unix.TIOCGWINSZ)
	if err != nil {
		return fmt.Errorf("cannot get terminal size: %w", err)
	}
	if ws.Col < minColumns {
		return fmt.Errorf("terminal too narrow (%d columns, need at least %d)", ws.Col, minColumns)
	}
	return nil
}

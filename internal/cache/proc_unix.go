//go:build !windows

package cache

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// killGroupOnCancel starts c in a process group of its own so that
// cancellation also reaches the processes it forks.
func killGroupOnCancel(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		return unix.Kill(-c.Process.Pid, unix.SIGKILL)
	}
}

//go:build windows

package cache

import "os/exec"

// killGroupOnCancel keeps the default cancellation, which kills only the
// direct child; WaitDelay releases the pipes held by its descendants.
func killGroupOnCancel(*exec.Cmd) {}

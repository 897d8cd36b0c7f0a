package cache

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	"golang.org/x/sys/execabs"
)

// exitNotStarted is recorded when the command could not be started at all,
// matching the shell's "command not found" status.
const exitNotStarted = 127

// waitDelay bounds how long Run waits for the output pipes after the
// process has been killed. Descendants may still hold them open.
const waitDelay = 500 * time.Millisecond

// ExecRunner runs cmd as a child process with no stdin and captures both
// output streams. A signalled process reports ReturnCode -1. Cancelling ctx
// kills the command's whole process group.
func ExecRunner(ctx context.Context, cmd []string) (Entry, error) {
	c := execabs.CommandContext(ctx, cmd[0], cmd[1:]...) //nolint:gosec // G204: commands come from the menu definition
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	c.WaitDelay = waitDelay
	killGroupOnCancel(c)

	err := c.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Entry{}, ctxErr
	}

	e := Entry{Stdout: stdout.String(), Stderr: stderr.String()}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		e.ReturnCode = exitErr.ExitCode()
	default:
		e.ReturnCode = exitNotStarted
		e.Stderr += err.Error() + "\n"
	}
	return e, nil
}

package chooser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/execabs"
)

// baseFzfArgs are passed on every invocation.
var baseFzfArgs = []string{
	"--layout=reverse",
	"--tiebreak=index",
	"--border=rounded",
	"--margin=1",
	"--padding=1",
	"--no-info",
}

// Fzf runs the external fzf program. fzf draws on the terminal through its
// stderr and /dev/tty; its stdout carries the chosen name.
type Fzf struct {
	path      string
	extraArgs []string
	logger    *slog.Logger

	// stderr is where fzf draws; os.Stderr unless replaced in tests.
	stderr io.Writer
}

// NewFzf returns a chooser running the fzf binary at path.
func NewFzf(path string, extraArgs []string, logger *slog.Logger) *Fzf {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Fzf{path: path, extraArgs: extraArgs, logger: logger, stderr: os.Stderr}
}

// Args returns the fzf command line for req.
func (f *Fzf) Args(req Request) []string {
	args := append([]string(nil), baseFzfArgs...)
	if req.PreviewCommand != "" {
		args = append(args, "--preview="+req.PreviewCommand)
	}
	if req.Design.BorderLabel != "" {
		args = append(args, "--border-label="+req.Design.BorderLabel)
	}
	if req.Design.Header != "" {
		args = append(args, "--header="+req.Design.Header)
	}
	if req.Design.Prompt != "" {
		args = append(args, "--prompt="+req.Design.Prompt)
	}
	return append(args, f.extraArgs...)
}

// Choose implements Chooser. Only names are written to fzf's stdin, one per
// line. A non-zero exit is not an error here; the caller interprets it.
func (f *Fzf) Choose(ctx context.Context, req Request) (Outcome, error) {
	args := f.Args(req)
	cmd := execabs.CommandContext(ctx, f.path, args...) //nolint:gosec // G204: fzf path comes from config or PATH
	cmd.Stdin = strings.NewReader(joinLines(req.Names))
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = f.stderr

	f.logger.Debug("running fzf", "path", f.path, "names", len(req.Names))
	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Outcome{}, ctxErr
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return Outcome{ExitCode: ExitSelected, Output: stdout.String()}, nil
	case errors.As(err, &exitErr):
		f.logger.Debug("fzf exited", "code", exitErr.ExitCode())
		return Outcome{ExitCode: exitErr.ExitCode(), Output: stdout.String()}, nil
	default:
		return Outcome{}, fmt.Errorf("failed to run fzf: %w", err)
	}
}

func joinLines(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return strings.Join(names, "\n") + "\n"
}

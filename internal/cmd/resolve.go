package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/runger/menusel/internal/preview"
	"github.com/runger/menusel/internal/selection"
)

// resolveTimeout bounds one preview lookup. Command previews may run a
// program on a cache miss, so this is generous.
const resolveTimeout = 30 * time.Second

// resolvePreview is run by the chooser for the highlighted name:
//
//	menusel --resolve-preview ADDR NAME
func resolvePreview(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) != 2 {
		fmt.Fprintf(stderr, "usage: menusel %s ADDR NAME\n", selection.ResolveFlag)
		return exitError
	}
	addr, name := args[0], args[1]

	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	text, err := preview.Resolve(ctx, addr, name)
	switch {
	case errors.Is(err, preview.ErrNotFound):
		fmt.Fprintf(stderr, "menusel: no option named %q\n", name)
		return exitCancelled
	case err != nil:
		fmt.Fprintf(stderr, "menusel: preview unavailable: %v\n", err)
		return exitError
	}

	_, _ = io.WriteString(stdout, preview.FitToPane(text))
	return exitOK
}

// Package chooser presents option names to the user and reports which one
// was picked. Two backends exist: the external fzf program and an
// in-process terminal picker. Both receive names only; previews are fetched
// on demand from the session's preview channel.
package chooser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sys/execabs"

	"github.com/runger/menusel/internal/menu"
)

// Exit codes reported in Outcome.ExitCode. They follow fzf so that both
// backends are interpreted the same way.
const (
	ExitSelected    = 0
	ExitNoMatch     = 1
	ExitInterrupted = 130
)

// Backend names.
const (
	BackendAuto    = "auto"
	BackendFzf     = "fzf"
	BackendBuiltin = "builtin"
)

// ErrUnknownBackend is returned by New for an unrecognized backend name.
var ErrUnknownBackend = errors.New("unknown chooser backend")

// Request is one invocation of a chooser.
type Request struct {
	// Names in presentation order.
	Names  []string
	Design menu.Design

	// PreviewCommand is the command template an external chooser runs for
	// the highlighted name; "{}" stands for the name.
	PreviewCommand string

	// PreviewAddr is the preview channel address, for in-process choosers.
	PreviewAddr string
}

// Outcome is what the chooser reported: its exit code and its output, whose
// first line is the chosen name when ExitCode is ExitSelected.
type Outcome struct {
	ExitCode int
	Output   string
}

// Chooser runs an interactive selection.
type Chooser interface {
	Choose(ctx context.Context, req Request) (Outcome, error)
}

// Config selects and configures a backend.
type Config struct {
	Backend   string
	FzfPath   string
	ExtraArgs []string
	Logger    *slog.Logger
}

// New returns the chooser for cfg.Backend. BackendAuto (or an empty name)
// picks fzf when it can be found and the builtin picker otherwise.
func New(cfg Config) (Chooser, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	switch cfg.Backend {
	case BackendFzf:
		path, err := fzfPath(cfg.FzfPath)
		if err != nil {
			return nil, err
		}
		return NewFzf(path, cfg.ExtraArgs, logger), nil

	case BackendBuiltin:
		return NewBuiltin(WithBuiltinLogger(logger)), nil

	case BackendAuto, "":
		path, err := fzfPath(cfg.FzfPath)
		if err != nil {
			logger.Debug("fzf not available, using builtin chooser", "error", err)
			return NewBuiltin(WithBuiltinLogger(logger)), nil
		}
		return NewFzf(path, cfg.ExtraArgs, logger), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

// fzfPath resolves the fzf executable; configured is used verbatim when set.
func fzfPath(configured string) (string, error) {
	name := "fzf"
	if configured != "" {
		name = configured
	}
	path, err := execabs.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("fzf not found: %w", err)
	}
	return path, nil
}

package chooser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/runger/menusel/internal/preview"
)

// Builtin is the in-process chooser. It draws on /dev/tty so that stdout
// stays free for the caller's data, and fetches previews from the session's
// preview channel exactly like fzf's preview helper does.
type Builtin struct {
	logger *slog.Logger

	// in/out replace /dev/tty when set.
	in  *os.File
	out *os.File
}

// BuiltinOption configures a Builtin.
type BuiltinOption func(*Builtin)

// WithBuiltinLogger sets the logger.
func WithBuiltinLogger(l *slog.Logger) BuiltinOption {
	return func(b *Builtin) {
		b.logger = l
	}
}

// WithTerminal makes the chooser use the given terminal instead of opening
// /dev/tty. The terminal checks are skipped.
func WithTerminal(in, out *os.File) BuiltinOption {
	return func(b *Builtin) {
		b.in = in
		b.out = out
	}
}

// NewBuiltin returns the builtin chooser.
func NewBuiltin(opts ...BuiltinOption) *Builtin {
	b := &Builtin{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Choose implements Chooser.
func (b *Builtin) Choose(ctx context.Context, req Request) (Outcome, error) {
	in, out := b.in, b.out
	if in == nil || out == nil {
		if err := checkTerminal(); err != nil {
			return Outcome{}, err
		}
		tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
		if err != nil {
			return Outcome{}, fmt.Errorf("cannot open /dev/tty: %w", err)
		}
		defer tty.Close()
		in, out = tty, tty
	}

	// Detect the color profile from the terminal we draw on; stdout may be
	// a pipe.
	lipgloss.SetColorProfile(termenv.NewOutput(out).ColorProfile())

	var fetch PreviewFunc
	if req.PreviewAddr != "" {
		addr := req.PreviewAddr
		fetch = func(ctx context.Context, name string) (string, error) {
			return preview.Resolve(ctx, addr, name)
		}
	}

	model := NewModel(req.Names, req.Design, fetch)
	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithInput(in),
		tea.WithOutput(out),
		tea.WithContext(ctx),
	)

	b.logger.Debug("running builtin chooser", "names", len(req.Names))
	final, err := p.Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, tea.ErrProgramKilled) {
			return Outcome{}, ctxErr
		}
		return Outcome{}, fmt.Errorf("chooser TUI error: %w", err)
	}

	m, ok := final.(Model)
	if !ok {
		return Outcome{}, errors.New("unexpected chooser model type")
	}

	output := ""
	if m.Result() != "" {
		output = m.Result() + "\n"
	}
	return Outcome{ExitCode: m.ExitCode(), Output: output}, nil
}

// checkTerminal verifies that an interactive terminal is available.
func checkTerminal() error {
	if err := checkTTY(); err != nil {
		return err
	}
	if os.Getenv("TERM") == "dumb" {
		return errors.New("TERM=dumb is not supported")
	}
	return checkTermWidth()
}

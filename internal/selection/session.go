// Package selection runs one interactive selection: it serves the options'
// previews on a fresh preview channel, hands the names to a chooser and maps
// the chooser's answer back to an option.
package selection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/runger/menusel/internal/chooser"
	"github.com/runger/menusel/internal/menu"
	"github.com/runger/menusel/internal/preview"
)

// ResolveFlag is the hidden flag of the preview sub-invocation:
// <program> --resolve-preview <addr> <name>.
const ResolveFlag = "--resolve-preview"

// DefaultCancelCodes are the chooser exit codes that mean "nothing chosen".
var DefaultCancelCodes = []int{chooser.ExitNoMatch, chooser.ExitInterrupted}

// ErrProtocolViolation means the chooser reported success with a name that
// was never offered. It is an internal bug and must not be ignored.
var ErrProtocolViolation = errors.New("chooser returned an unknown option")

// ChooserError reports a chooser exit code that is neither success nor a
// cancel code.
type ChooserError struct {
	ExitCode int
	Output   string
}

func (e *ChooserError) Error() string {
	return fmt.Sprintf("chooser exited with code %d", e.ExitCode)
}

// Session runs selections with one chooser. Run is not reentrant: concurrent
// calls are serialized so that at most one chooser owns the terminal.
type Session struct {
	chooser  chooser.Chooser
	renderer preview.Renderer

	program     string
	runtimeDir  string
	cancelCodes map[int]bool
	debug       bool
	logger      *slog.Logger

	readTimeout      time.Duration
	handshakeTimeout time.Duration

	mu sync.Mutex
}

// Option configures a Session.
type Option func(*Session)

// WithProgram sets the executable fzf runs for previews (default: this
// executable).
func WithProgram(path string) Option {
	return func(s *Session) {
		s.program = path
	}
}

// WithRuntimeDir sets the parent directory of preview channel sockets.
func WithRuntimeDir(dir string) Option {
	return func(s *Session) {
		s.runtimeDir = dir
	}
}

// WithCancelCodes replaces the exit codes that mean "cancelled".
func WithCancelCodes(codes ...int) Option {
	return func(s *Session) {
		s.cancelCodes = make(map[int]bool, len(codes))
		for _, c := range codes {
			s.cancelCodes[c] = true
		}
	}
}

// WithDebug decorates the chooser's border label with debug markers.
func WithDebug(debug bool) Option {
	return func(s *Session) {
		s.debug = debug
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithTimeouts bounds preview request reads and the shutdown handshake.
func WithTimeouts(read, handshake time.Duration) Option {
	return func(s *Session) {
		s.readTimeout = read
		s.handshakeTimeout = handshake
	}
}

// New returns a Session using c to choose and r to render previews.
func New(c chooser.Chooser, r preview.Renderer, opts ...Option) *Session {
	s := &Session{
		chooser:          c,
		renderer:         r,
		logger:           slog.New(slog.DiscardHandler),
		readTimeout:      preview.DefaultReadTimeout,
		handshakeTimeout: preview.DefaultHandshakeTimeout,
	}
	WithCancelCodes(DefaultCancelCodes...)(s)
	for _, opt := range opts {
		opt(s)
	}
	if s.program == "" {
		if exe, err := os.Executable(); err == nil {
			s.program = exe
		} else {
			s.program = os.Args[0]
		}
	}
	return s
}

// PreviewCommand builds the command template the chooser runs for the
// highlighted name. "{}" is left unquoted for fzf to substitute.
func PreviewCommand(program, addr string) string {
	return shellquote.Join(program, ResolveFlag, addr) + " {}"
}

// Run lets the user choose one of options. ok is false when the user
// cancelled. The preview channel is torn down on every path; a failed
// shutdown handshake is returned in preference to any other result.
func (s *Session) Run(ctx context.Context, design menu.Design, options ...menu.Option) (chosen menu.Option, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range menu.Duplicates(options) {
		s.logger.Warn("duplicate option name, the last definition wins", "name", name)
	}
	index := menu.Index(options)
	names := menu.Names(options)

	opts := []preview.ServerOption{
		preview.WithServerLogger(s.logger),
		preview.WithReadTimeout(s.readTimeout),
		preview.WithHandshakeTimeout(s.handshakeTimeout),
	}
	if s.renderer != nil {
		opts = append(opts, preview.WithRenderer(s.renderer))
	}
	srv, err := preview.Start(s.runtimeDir, index, opts...)
	if err != nil {
		return menu.Option{}, false, err
	}
	defer func() {
		if stopErr := srv.Stop(); stopErr != nil {
			chosen, ok, err = menu.Option{}, false, stopErr
		}
	}()

	req := chooser.Request{
		Names:          names,
		Design:         design.Decorate(s.debug),
		PreviewCommand: PreviewCommand(s.program, srv.Addr()),
		PreviewAddr:    srv.Addr(),
	}
	s.logger.Info("selection started", "session", srv.ID(), "options", len(names))

	outcome, err := s.chooser.Choose(ctx, req)
	if err != nil {
		return menu.Option{}, false, fmt.Errorf("chooser failed: %w", err)
	}
	return s.interpret(outcome, index)
}

// interpret maps a chooser outcome to a result.
func (s *Session) interpret(outcome chooser.Outcome, index map[string]menu.Option) (menu.Option, bool, error) {
	if s.cancelCodes[outcome.ExitCode] {
		s.logger.Info("selection cancelled", "exit_code", outcome.ExitCode)
		return menu.Option{}, false, nil
	}
	if outcome.ExitCode != chooser.ExitSelected {
		return menu.Option{}, false, &ChooserError{ExitCode: outcome.ExitCode, Output: outcome.Output}
	}

	name := firstLine(outcome.Output)
	opt, found := index[name]
	if !found {
		return menu.Option{}, false, fmt.Errorf("%w: %q", ErrProtocolViolation, name)
	}
	s.logger.Info("selection made", "name", name)
	return opt, true, nil
}

// firstLine returns the first line of s without its line terminator.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSuffix(s, "\r")
}

package preview

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/kballard/go-shellquote"
	"github.com/muesli/termenv"

	"github.com/runger/menusel/internal/cache"
	"github.com/runger/menusel/internal/menu"
)

// CachedRenderer renders Text previews verbatim and Command previews through
// a cache store, so each command runs at most once per cache directory.
type CachedRenderer struct {
	store *cache.Store

	header lipgloss.Style
	status lipgloss.Style
	color  bool
}

// NewCachedRenderer returns a renderer backed by store. With color set the
// command header and exit status are styled for a 256-color preview pane.
func NewCachedRenderer(store *cache.Store, color bool) *CachedRenderer {
	// The output goes to the chooser's preview pane, not to our own
	// terminal, so the color profile is fixed instead of detected.
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.ANSI256)

	return &CachedRenderer{
		store:  store,
		header: r.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		status: r.NewStyle().Foreground(lipgloss.Color("1")),
		color:  color,
	}
}

// Render implements Renderer.
func (r *CachedRenderer) Render(ctx context.Context, opt menu.Option) (string, error) {
	switch src := opt.Preview.(type) {
	case nil:
		return "", nil
	case menu.Text:
		return string(src), nil
	case menu.Command:
		e, err := r.store.Retrieve(ctx, src)
		if err != nil {
			return "", err
		}
		return r.format(src, e), nil
	default:
		return "", fmt.Errorf("unsupported preview source %T", src)
	}
}

// format lays out a command result: header, stdout, stderr and, for a
// failed command, the exit status.
func (r *CachedRenderer) format(argv []string, e cache.Entry) string {
	var b strings.Builder

	b.WriteString(r.style(r.header, "$ "+shellquote.Join(argv...)))
	b.WriteByte('\n')
	writeBlock(&b, e.Stdout)
	writeBlock(&b, e.Stderr)
	if e.Failed() {
		b.WriteString(r.style(r.status, fmt.Sprintf("[exit status %d]", e.ReturnCode)))
		b.WriteByte('\n')
	}
	return b.String()
}

func (r *CachedRenderer) style(s lipgloss.Style, text string) string {
	if !r.color {
		return text
	}
	return s.Render(text)
}

// writeBlock appends text, terminating it with a newline if needed.
func writeBlock(b *strings.Builder, text string) {
	if text == "" {
		return
	}
	b.WriteString(text)
	if !strings.HasSuffix(text, "\n") {
		b.WriteByte('\n')
	}
}

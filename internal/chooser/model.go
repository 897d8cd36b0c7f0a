package chooser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/runger/menusel/internal/menu"
	"github.com/runger/menusel/internal/preview"
)

// debounceInterval is the delay after the last cursor move before a preview
// is fetched.
const debounceInterval = 80 * time.Millisecond

// previewTimeout bounds a single preview fetch.
const previewTimeout = 30 * time.Second

// PreviewFunc fetches the preview of a name.
type PreviewFunc func(ctx context.Context, name string) (string, error)

// previewDoneMsg is sent when an async preview fetch completes.
type previewDoneMsg struct {
	requestID uint64
	name      string
	text      string
	err       error
}

// debounceMsg fires after the debounce timer expires.
type debounceMsg struct {
	id uint64 // Must match current debounceID to be accepted
}

// initMsg triggers the first preview through Update.
type initMsg struct{}

// Model is the Bubble Tea model of the builtin chooser: a filter line, the
// matching names and a preview pane.
type Model struct {
	names   []string
	matches []string
	design  menu.Design

	filter    textinput.Model
	selection int // Index into matches; -1 when empty
	pane      viewport.Model

	fetch       PreviewFunc
	requestID   uint64 // Monotonic counter for stale detection
	debounceID  uint64
	cancelFetch context.CancelFunc
	shownFor    string // Name the pane content belongs to
	loading     bool

	width  int
	height int

	exitCode int
	result   string
}

// NewModel creates a chooser model over names. fetch may be nil, in which
// case no previews are shown.
func NewModel(names []string, design menu.Design, fetch PreviewFunc) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	if design.Prompt != "" {
		ti.Prompt = design.Prompt
	}
	ti.Focus()

	m := Model{
		names:     names,
		design:    design,
		filter:    ti,
		selection: -1,
		pane:      viewport.New(0, 0),
		fetch:     fetch,
		exitCode:  ExitInterrupted,
	}
	m.refilter()
	return m
}

// ExitCode returns the fzf-compatible exit code of the finished session.
func (m Model) ExitCode() int {
	return m.exitCode
}

// Result returns the chosen name, or "" when nothing was chosen.
func (m Model) Result() string {
	return m.result
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, func() tea.Msg { return initMsg{} })
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizePane()
		return m, m.startFetch()

	case previewDoneMsg:
		return m.handlePreviewDone(msg)

	case debounceMsg:
		if msg.id != m.debounceID {
			return m, nil // Stale debounce timer; ignore.
		}
		return m, m.startFetch()

	case initMsg:
		return m, m.startFetch()
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.exitCode = ExitInterrupted
		m.cancelInflight()
		return m, tea.Quit

	case tea.KeyEnter:
		if m.selection >= 0 && m.selection < len(m.matches) {
			m.result = m.matches[m.selection]
			m.exitCode = ExitSelected
		} else {
			m.exitCode = ExitNoMatch
		}
		m.cancelInflight()
		return m, tea.Quit

	case tea.KeyUp, tea.KeyCtrlP:
		if m.selection > 0 {
			m.selection--
			return m, m.startDebounce()
		}
		return m, nil

	case tea.KeyDown, tea.KeyCtrlN:
		if m.selection < len(m.matches)-1 {
			m.selection++
			return m, m.startDebounce()
		}
		return m, nil

	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.pane, cmd = m.pane.Update(msg)
		return m, cmd
	}

	before := m.filter.Value()
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	if m.filter.Value() == before {
		return m, cmd
	}

	previous := m.current()
	m.refilter()
	if m.current() == previous {
		return m, cmd
	}
	return m, tea.Batch(cmd, m.startDebounce())
}

func (m Model) handlePreviewDone(msg previewDoneMsg) (tea.Model, tea.Cmd) {
	// Discard stale responses.
	if msg.requestID != m.requestID {
		return m, nil
	}
	m.loading = false
	m.shownFor = msg.name

	switch {
	case msg.err == nil:
		m.pane.SetContent(preview.Fit(msg.text, m.pane.Width, 0))
	case errors.Is(msg.err, preview.ErrNotFound):
		m.pane.SetContent(dimStyle.Render("no preview available"))
	default:
		m.pane.SetContent(errorStyle.Render(fmt.Sprintf("Error: %s", msg.err)))
	}
	m.pane.GotoTop()
	return m, nil
}

// refilter recomputes the matches for the current filter, keeping the
// highlighted name when it still matches.
func (m *Model) refilter() {
	previous := m.current()
	m.matches = Filter(m.names, m.filter.Value())

	m.selection = -1
	for i, name := range m.matches {
		if name == previous {
			m.selection = i
			break
		}
	}
	if m.selection < 0 && len(m.matches) > 0 {
		m.selection = 0
	}
}

// current returns the highlighted name, or "" when nothing matches.
func (m Model) current() string {
	if m.selection >= 0 && m.selection < len(m.matches) {
		return m.matches[m.selection]
	}
	return ""
}

// startDebounce increments the debounce counter and returns a tea.Tick
// command that fires after debounceInterval.
func (m *Model) startDebounce() tea.Cmd {
	m.debounceID++
	id := m.debounceID
	return tea.Tick(debounceInterval, func(time.Time) tea.Msg {
		return debounceMsg{id: id}
	})
}

// startFetch cancels any in-flight fetch and requests the preview of the
// highlighted name.
func (m *Model) startFetch() tea.Cmd {
	m.cancelInflight()
	m.requestID++

	name := m.current()
	if m.fetch == nil || name == "" {
		m.loading = false
		m.shownFor = ""
		m.pane.SetContent("")
		return nil
	}
	if name == m.shownFor {
		m.loading = false
		return nil
	}
	m.loading = true

	reqID := m.requestID
	ctx, cancel := context.WithTimeout(context.Background(), previewTimeout)
	m.cancelFetch = cancel

	fetch := m.fetch
	return func() tea.Msg {
		defer cancel()
		text, err := fetch(ctx, name)
		return previewDoneMsg{requestID: reqID, name: name, text: text, err: err}
	}
}

// cancelInflight cancels any in-progress fetch context.
func (m *Model) cancelInflight() {
	if m.cancelFetch != nil {
		m.cancelFetch()
		m.cancelFetch = nil
	}
}

// Filter returns the names containing every space-separated term of query,
// case-insensitively, in their original order.
func Filter(names []string, query string) []string {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return append([]string(nil), names...)
	}

	var out []string
	for _, name := range names {
		lower := strings.ToLower(name)
		ok := true
		for _, term := range terms {
			if !strings.Contains(lower, term) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, name)
		}
	}
	return out
}

// --- Layout ---

// chrome returns the number of rows above the list.
func (m Model) chrome() int {
	rows := 2 // filter line and counter
	if m.design.BorderLabel != "" {
		rows++
	}
	if m.design.Header != "" {
		rows++
	}
	return rows
}

func (m Model) bodyHeight() int {
	h := m.height - m.chrome()
	if h < 1 {
		h = 10 // Sensible default before first WindowSizeMsg
	}
	return h
}

func (m Model) listWidth() int {
	if m.width <= 0 {
		return 40
	}
	if m.fetch == nil {
		return m.width
	}
	return m.width - m.width/2 - 1
}

func (m *Model) resizePane() {
	m.pane.Width = m.width - m.listWidth() - 1
	if m.pane.Width < 0 {
		m.pane.Width = 0
	}
	m.pane.Height = m.bodyHeight()
	m.shownFor = "" // re-fit on the next fetch
}

// --- View rendering ---

var (
	labelStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62"))
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	normalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	paneStyle     = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderLeft(true).PaddingLeft(1)
)

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	if m.design.BorderLabel != "" {
		b.WriteString(labelStyle.Render(" " + m.design.BorderLabel + " "))
		b.WriteRune('\n')
	}
	if m.design.Header != "" {
		b.WriteString(headerStyle.Render(m.design.Header))
		b.WriteRune('\n')
	}
	b.WriteString(m.filter.View())
	b.WriteRune('\n')
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %d/%d", len(m.matches), len(m.names))))
	b.WriteRune('\n')

	list := m.viewList()
	if m.fetch == nil {
		b.WriteString(list)
		return b.String()
	}

	pane := m.pane.View()
	if m.loading && m.shownFor == "" {
		pane = dimStyle.Render("Loading...")
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(m.listWidth()).Render(list),
		paneStyle.Render(pane),
	))
	return b.String()
}

// viewList renders the visible window of matches with a selection marker.
func (m Model) viewList() string {
	if len(m.matches) == 0 {
		return dimStyle.Render("  No matches")
	}

	height := m.bodyHeight()
	start := 0
	if m.selection >= height {
		start = m.selection - height + 1
	}

	var rows []string
	for i := start; i < len(m.matches) && i < start+height; i++ {
		display := m.matches[i]
		if w := m.listWidth(); w > 4 {
			display = MiddleTruncate(StripControl(display), w-2)
		}
		if i == m.selection {
			rows = append(rows, selectedStyle.Render("> "+display))
		} else {
			rows = append(rows, normalStyle.Render("  "+display))
		}
	}
	return strings.Join(rows, "\n")
}

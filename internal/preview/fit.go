package preview

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

const tabWidth = 8

// sgrReset ends any styling left open by a truncated line.
const sgrReset = "\x1b[0m"

// StripANSI removes ANSI escape sequences from a string.
func StripANSI(s string) string {
	return ansi.Strip(s)
}

// Fit cuts text to a preview pane of cols display cells by lines rows.
// A non-positive dimension leaves that dimension unbounded. Escape sequences
// take no room; tabs are expanded so the width count matches the display.
func Fit(text string, cols, lines int) string {
	if cols <= 0 && lines <= 0 {
		return text
	}

	trailing := strings.HasSuffix(text, "\n")
	rows := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	if lines > 0 && len(rows) > lines {
		rows = rows[:lines]
		trailing = true
	}
	if cols > 0 {
		for i, row := range rows {
			rows[i] = truncateRow(row, cols)
		}
	}

	out := strings.Join(rows, "\n")
	if trailing {
		out += "\n"
	}
	return out
}

// FitToPane fits text to the pane size fzf exports to preview commands
// ($FZF_PREVIEW_COLUMNS and $FZF_PREVIEW_LINES). Without them text is
// returned unchanged.
func FitToPane(text string) string {
	return Fit(text, envInt("FZF_PREVIEW_COLUMNS"), envInt("FZF_PREVIEW_LINES"))
}

func envInt(name string) int {
	n, err := strconv.Atoi(os.Getenv(name))
	if err != nil {
		return 0
	}
	return n
}

// truncateRow returns the longest prefix of row that fits in cols display
// cells, keeping every escape sequence it passes.
func truncateRow(row string, cols int) string {
	row = expandTabs(row)
	if ansi.StringWidth(row) <= cols {
		return row
	}
	out := ansi.Truncate(row, cols, "")
	if strings.Contains(out, "\x1b[") && !strings.HasSuffix(out, sgrReset) {
		out += sgrReset
	}
	return out
}

// expandTabs replaces tabs with spaces up to the next tab stop, counting
// display cells only.
func expandTabs(row string) string {
	if !strings.ContainsRune(row, '\t') {
		return row
	}
	var b strings.Builder
	parts := strings.Split(row, "\t")
	for i, part := range parts {
		b.WriteString(part)
		if i < len(parts)-1 {
			width := ansi.StringWidth(b.String())
			b.WriteString(strings.Repeat(" ", tabWidth-width%tabWidth))
		}
	}
	return b.String()
}

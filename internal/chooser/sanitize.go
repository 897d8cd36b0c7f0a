package chooser

import (
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"

	"github.com/runger/menusel/internal/preview"
)

// StripControl removes ANSI escape sequences and control characters so a
// name cannot move the cursor or restyle the list.
func StripControl(s string) string {
	s = preview.StripANSI(s)
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// MiddleTruncate truncates a string in the middle with an ellipsis character
// if its display width exceeds maxWidth. It is display-width-aware, correctly
// handling CJK characters and emoji that occupy two columns.
//
// If maxWidth < 3 (minimum for "x...x"), the string is simply truncated from
// the right to fit maxWidth.
func MiddleTruncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}

	const ellipsis = "…"

	if maxWidth < 3 {
		return truncateLeft(s, maxWidth)
	}

	// One column for the ellipsis; the head gets the odd column.
	remaining := maxWidth - 1
	return truncateLeft(s, (remaining+1)/2) + ellipsis + truncateRight(s, remaining/2)
}

// truncateLeft returns the longest prefix of s whose display width does not
// exceed maxWidth.
func truncateLeft(s string, maxWidth int) string {
	w := 0
	for i, r := range s {
		rw := runewidth.RuneWidth(r)
		if w+rw > maxWidth {
			return s[:i]
		}
		w += rw
	}
	return s
}

// truncateRight returns the longest suffix of s whose display width does not
// exceed maxWidth.
func truncateRight(s string, maxWidth int) string {
	runes := []rune(s)
	w := 0
	start := len(runes)
	for i := len(runes) - 1; i >= 0; i-- {
		rw := runewidth.RuneWidth(runes[i])
		if w+rw > maxWidth {
			break
		}
		w += rw
		start = i
	}
	return string(runes[start:])
}

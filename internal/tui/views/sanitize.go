package views

import (
	"strings"
	"unicode"

	"github.com/rivo/tview"
)

// safe prepares text from the server for a tview cell: it drops runes tcell
// cannot lay out and escapes color tags.
func safe(s string) string {
	return tview.Escape(strings.Map(keepRune, s))
}

// keepRune returns -1 for runes that break cell widths: emoji modifiers and
// joiners (a thumbs-up with a skin tone collapses to the plain thumbs-up) and
// control characters other than newline and tab.
func keepRune(r rune) rune {
	switch {
	case r == '\n' || r == '\t':
		return r
	case r == '\u200d', // zero width joiner
		r >= 0x1F3FB && r <= 0x1F3FF, // skin tones
		r >= 0xFE00 && r <= 0xFE0F,
		r >= 0xE0100 && r <= 0xE01EF:
		return -1
	case unicode.IsControl(r):
		return -1
	}
	return r
}

// oneLine folds line breaks so a message fits a table cell.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

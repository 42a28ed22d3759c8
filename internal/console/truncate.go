package console

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Truncate cuts every line of s to width visual columns, ending cut lines
// with "...". Escape sequences and wide characters are measured correctly,
// so colored output stays intact. A width below 1 leaves s unchanged.
func Truncate(s string, width int) string {
	if width < 1 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = truncateLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	if width <= 3 {
		return ansi.Truncate(s, width, "")
	}
	// ansi.Truncate includes the tail in the final width
	return ansi.Truncate(s, width, "...")
}

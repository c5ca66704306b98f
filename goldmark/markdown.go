// Package goldmark renders model text written in markdown as ANSI-styled
// terminal output. Parsing uses github.com/yuin/goldmark; styling uses
// lipgloss with the colors of a converse.Theme.
package goldmark

import "github.com/fwojciec/converse"

const defaultWidth = 80

// Render parses markdown source and returns styled terminal output.
// Paragraphs and list items wrap at width; code is never reflowed.
func Render(source string, width int, theme converse.Theme) string {
	if source == "" {
		return ""
	}
	if width <= 0 {
		width = defaultWidth
	}
	return newRenderer(theme).render([]byte(source), width)
}

package mcp

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

const (
	defaultMaxResultLines = 500
	defaultMaxResultBytes = 32 * 1024
)

// clean prepares server output for the conversation log. Terminal escape
// sequences and control characters other than tab and newline are removed,
// then the text is cut to its first maxLines lines and maxBytes bytes. A
// limit of zero or less disables that bound.
func clean(s string, maxLines, maxBytes int) string {
	return truncateHead(sanitize(s), maxLines, maxBytes)
}

func sanitize(s string) string {
	s = ansi.Strip(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Map(func(r rune) rune {
		if r == '\t' || r == '\n' || (r > 0x1F && r != 0x7F) {
			return r
		}
		return -1
	}, s)
}

// truncateHead keeps whole leading lines within both limits and appends a
// marker naming how much was kept. A first line longer than maxBytes is cut
// on a rune boundary.
func truncateHead(s string, maxLines, maxBytes int) string {
	if s == "" || (maxLines <= 0 && maxBytes <= 0) {
		return s
	}

	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	total := len(lines)

	var b strings.Builder
	kept := 0
	for _, line := range lines {
		if maxLines > 0 && kept == maxLines {
			break
		}
		if maxBytes > 0 && b.Len()+len(line) > maxBytes {
			if kept == 0 {
				b.WriteString(strings.ToValidUTF8(line[:maxBytes], ""))
				kept = 1
			}
			break
		}
		b.WriteString(line)
		kept++
	}
	if kept == total && b.Len() == len(s) {
		return s
	}
	return fmt.Sprintf("%s\n[output truncated: showing %d of %d lines]", strings.TrimRight(b.String(), "\n"), kept, total)
}

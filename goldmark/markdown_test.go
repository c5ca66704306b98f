package goldmark_test

import (
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/converse"
	"github.com/fwojciec/converse/goldmark"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func stripANSI(s string) string {
	return ansi.ReplaceAllString(s, "")
}

// plain strips styling and trailing padding from every line.
func plain(s string) string {
	lines := strings.Split(stripANSI(s), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	return strings.Join(lines, "\n")
}

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.ANSI)
	os.Exit(m.Run())
}

func TestRender(t *testing.T) {
	t.Parallel()
	theme := converse.DefaultTheme()

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, goldmark.Render("", 80, theme))
	})

	t.Run("paragraph", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "hello world", plain(goldmark.Render("hello world", 80, theme)))
	})

	t.Run("heading is styled", func(t *testing.T) {
		t.Parallel()
		heading := goldmark.Render("# Title", 80, theme)
		paragraph := goldmark.Render("Title", 80, theme)
		assert.Equal(t, "Title", plain(heading))
		assert.NotEqual(t, heading, paragraph)
	})

	t.Run("emphasis and code keep their text", func(t *testing.T) {
		t.Parallel()
		got := plain(goldmark.Render("some **bold**, *italic* and `code`", 80, theme))
		assert.Equal(t, "some bold, italic and code", got)
	})

	t.Run("paragraphs separated by a blank line", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "first\n\nsecond", plain(goldmark.Render("first\n\nsecond", 80, theme)))
	})

	t.Run("long paragraph wraps", func(t *testing.T) {
		t.Parallel()
		got := plain(goldmark.Render("alpha beta gamma delta epsilon", 12, theme))
		for _, line := range strings.Split(got, "\n") {
			assert.LessOrEqual(t, len(line), 12)
		}
		assert.Contains(t, got, "epsilon")
	})

	t.Run("fenced code is not reflowed", func(t *testing.T) {
		t.Parallel()
		got := plain(goldmark.Render("```go\nfmt.Println(\"hello world\")\n```", 10, theme))
		assert.Equal(t, "go\n│ fmt.Println(\"hello world\")", got)
	})

	t.Run("unordered list", func(t *testing.T) {
		t.Parallel()
		got := plain(goldmark.Render("- one\n- two", 80, theme))
		assert.Equal(t, "- one\n- two", got)
	})

	t.Run("ordered list keeps start number", func(t *testing.T) {
		t.Parallel()
		got := plain(goldmark.Render("3. three\n4. four", 80, theme))
		assert.Equal(t, "3. three\n4. four", got)
	})

	t.Run("nested list is indented", func(t *testing.T) {
		t.Parallel()
		got := plain(goldmark.Render("- outer\n  - inner", 80, theme))
		assert.Equal(t, "- outer\n  - inner", got)
	})

	t.Run("link shows destination", func(t *testing.T) {
		t.Parallel()
		got := plain(goldmark.Render("[photo](https://images.pexels.com/1.jpeg)", 80, theme))
		assert.Equal(t, "photo (https://images.pexels.com/1.jpeg)", got)
	})

	t.Run("blockquote has a bar", func(t *testing.T) {
		t.Parallel()
		got := plain(goldmark.Render("> quoted", 80, theme))
		assert.Equal(t, "▌ quoted", got)
	})
}

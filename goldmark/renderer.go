package goldmark

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/converse"
	"github.com/mattn/go-runewidth"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const minItemWidth = 10

type renderer struct {
	bold      lipgloss.Style
	italic    lipgloss.Style
	heading   lipgloss.Style
	muted     lipgloss.Style
	underline lipgloss.Style
	code      lipgloss.Style
}

func newRenderer(theme converse.Theme) *renderer {
	return &renderer{
		bold:      lipgloss.NewStyle().Bold(true),
		italic:    lipgloss.NewStyle().Italic(true),
		heading:   lipgloss.NewStyle().Foreground(ansiColor(theme.Accent)).Bold(true),
		muted:     lipgloss.NewStyle().Foreground(ansiColor(theme.Muted)).Faint(true),
		underline: lipgloss.NewStyle().Underline(true),
		code:      lipgloss.NewStyle().Foreground(ansiColor(theme.ToolCall)),
	}
}

func ansiColor(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}

// render writes each top-level block separated by one blank line.
func (r *renderer) render(source []byte, width int) string {
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	var blocks []string
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if s := r.block(n, source, width); s != "" {
			blocks = append(blocks, s)
		}
	}
	return strings.Join(blocks, "\n\n")
}

func (r *renderer) block(node ast.Node, source []byte, width int) string {
	switch n := node.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		return wrap(r.inline(n, source), width)
	case *ast.Heading:
		return wrap(r.heading.Render(r.inline(n, source)), width)
	case *ast.FencedCodeBlock:
		code := r.codeLines(n, source)
		if lang := string(n.Language(source)); lang != "" {
			return r.muted.Render(lang) + "\n" + code
		}
		return code
	case *ast.CodeBlock:
		return r.codeLines(n, source)
	case *ast.List:
		var buf bytes.Buffer
		r.list(&buf, n, source, width, 0)
		return strings.TrimRight(buf.String(), "\n")
	case *ast.ThematicBreak:
		return r.muted.Render(strings.Repeat("─", min(width, defaultWidth)))
	case *ast.Blockquote:
		var parts []string
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			parts = append(parts, r.block(c, source, width-2))
		}
		lines := strings.Split(strings.Join(parts, "\n\n"), "\n")
		bar := r.muted.Render("▌") + " "
		for i, l := range lines {
			lines[i] = bar + l
		}
		return strings.Join(lines, "\n")
	case *ast.HTMLBlock:
		return strings.TrimRight(string(n.Lines().Value(source)), "\n")
	default:
		var parts []string
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			parts = append(parts, r.block(c, source, width))
		}
		return strings.Join(parts, "\n\n")
	}
}

func (r *renderer) codeLines(n ast.Node, source []byte) string {
	gutter := r.muted.Render("│") + " "
	lines := n.Lines()
	out := make([]string, lines.Len())
	for i := range lines.Len() {
		seg := lines.At(i)
		out[i] = gutter + strings.TrimRight(string(seg.Value(source)), "\n")
	}
	return strings.Join(out, "\n")
}

func (r *renderer) list(buf *bytes.Buffer, list *ast.List, source []byte, width, depth int) {
	num := list.Start
	for c := list.FirstChild(); c != nil; c = c.NextSibling() {
		item, ok := c.(*ast.ListItem)
		if !ok {
			continue
		}
		marker := "- "
		if list.IsOrdered() {
			marker = strconv.Itoa(num) + ". "
			num++
		}
		prefix := strings.Repeat("  ", depth) + marker

		for ic := item.FirstChild(); ic != nil; ic = ic.NextSibling() {
			switch in := ic.(type) {
			case *ast.List:
				r.list(buf, in, source, width, depth+1)
				continue
			case *ast.Paragraph, *ast.TextBlock:
				writeItem(buf, prefix, r.inline(in, source), width)
			default:
				writeItem(buf, prefix, r.block(in, source, width-runewidth.StringWidth(prefix)), width)
			}
			prefix = strings.Repeat(" ", runewidth.StringWidth(prefix))
		}
	}
}

// writeItem wraps content beside prefix and indents continuation lines to
// the prefix width.
func writeItem(buf *bytes.Buffer, prefix, content string, width int) {
	pw := runewidth.StringWidth(prefix)
	lines := strings.Split(wrap(content, max(width-pw, minItemWidth)), "\n")
	pad := strings.Repeat(" ", pw)
	for i, line := range lines {
		if i == 0 {
			buf.WriteString(prefix)
		} else {
			buf.WriteString(pad)
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
}

func (r *renderer) inline(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		r.writeInline(&buf, c, source)
	}
	return buf.String()
}

func (r *renderer) writeInline(buf *bytes.Buffer, node ast.Node, source []byte) {
	switch n := node.(type) {
	case *ast.Text:
		buf.Write(n.Segment.Value(source))
		switch {
		case n.HardLineBreak():
			buf.WriteByte('\n')
		case n.SoftLineBreak():
			buf.WriteByte(' ')
		}
	case *ast.String:
		buf.Write(n.Value)
	case *ast.Emphasis:
		if n.Level == 1 {
			buf.WriteString(r.italic.Render(r.inline(n, source)))
		} else {
			buf.WriteString(r.bold.Render(r.inline(n, source)))
		}
	case *ast.CodeSpan:
		buf.WriteString(r.code.Render(r.inline(n, source)))
	case *ast.Link:
		buf.WriteString(r.underline.Render(r.inline(n, source)))
		buf.WriteString(" " + r.muted.Render("("+string(n.Destination)+")"))
	case *ast.Image:
		buf.WriteString(r.underline.Render(r.inline(n, source)))
		buf.WriteString(" " + r.muted.Render("("+string(n.Destination)+")"))
	case *ast.AutoLink:
		buf.WriteString(r.underline.Render(string(n.URL(source))))
	case *ast.RawHTML:
		for i := range n.Segments.Len() {
			seg := n.Segments.At(i)
			buf.Write(seg.Value(source))
		}
	default:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			r.writeInline(buf, c, source)
		}
	}
}

func wrap(s string, width int) string {
	return lipgloss.NewStyle().Width(width).Render(s)
}

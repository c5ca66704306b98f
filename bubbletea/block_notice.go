package bubbletea

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
)

var _ MessageBlock = (*NoticeBlock)(nil)

// NoticeBlock renders a tool notice. Collapsed, it shows the first line
// truncated to the view width; expanded, the full text.
type NoticeBlock struct {
	text      string
	collapsed bool
	styles    Styles
}

// NewNoticeBlock creates a NoticeBlock that starts collapsed.
func NewNoticeBlock(text string, styles Styles) *NoticeBlock {
	return &NoticeBlock{text: text, collapsed: true, styles: styles}
}

// Collapsed reports whether the block shows only its first line.
func (b *NoticeBlock) Collapsed() bool { return b.collapsed }

func (b *NoticeBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	if _, ok := msg.(ToggleMsg); ok {
		b.collapsed = !b.collapsed
	}
	return b, nil
}

func (b *NoticeBlock) View(width int) string {
	bg := b.styles.NoticeBg.Width(width)
	if !b.collapsed {
		return bg.Render(b.styles.Notice.Render("▼ " + b.text))
	}
	first, _, more := strings.Cut(b.text, "\n")
	if more {
		first += " …"
	}
	// Leave room for the indicator and the background padding.
	line := runewidth.Truncate(first, max(width-3, 1), "…")
	return bg.Render(b.styles.Notice.Render("▶ " + line))
}

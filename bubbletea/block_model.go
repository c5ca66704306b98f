package bubbletea

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/converse"
	"github.com/fwojciec/converse/goldmark"
)

var _ MessageBlock = (*ModelBlock)(nil)

// ModelBlock renders a model entry as markdown. Rendered output is cached
// per width.
type ModelBlock struct {
	text    string
	theme   converse.Theme
	byWidth map[int]string
}

// NewModelBlock creates a ModelBlock.
func NewModelBlock(text string, theme converse.Theme) *ModelBlock {
	return &ModelBlock{text: text, theme: theme, byWidth: make(map[int]string)}
}

func (b *ModelBlock) Update(tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *ModelBlock) View(width int) string {
	if s, ok := b.byWidth[width]; ok {
		return s
	}
	s := goldmark.Render(b.text, width, b.theme)
	b.byWidth[width] = s
	return s
}

package bubbletea

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/converse"
)

// MessageBlock is a renderable element in the conversation.
// View takes a width so the root model controls layout and blocks are
// testable in isolation.
type MessageBlock interface {
	Update(tea.Msg) (MessageBlock, tea.Cmd)
	View(width int) string
}

// ToggleMsg tells a collapsible block to toggle its collapsed state.
type ToggleMsg struct{}

// blockFor returns the block that renders e.
func blockFor(e converse.Entry, theme converse.Theme, styles Styles) MessageBlock {
	switch e.Role {
	case converse.RoleUser:
		return NewUserBlock(e.Text(), styles)
	case converse.RoleToolNotice:
		return NewNoticeBlock(e.Text(), styles)
	default:
		return NewModelBlock(e.Text(), theme)
	}
}

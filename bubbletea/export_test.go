package bubbletea

// RenderContent exports renderContent for testing.
func RenderContent(m Model) string {
	return m.renderContent()
}

// BlockFocus returns the index of the focused notice block.
func BlockFocus(m Model) int {
	return m.blockFocus
}

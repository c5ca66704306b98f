package bubbletea

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/converse"
	"github.com/fwojciec/converse/agent"
	"github.com/mattn/go-runewidth"
)

var _ tea.Model = Model{}

// Config carries display-only details for the status line.
type Config struct {
	ModelName string
	Tools     int
}

// Model is the Bubble Tea model for the chat TUI.
type Model struct {
	// Input is the text input component. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable output area. Exported for test access.
	Viewport viewport.Model

	run    TurnFunc
	theme  converse.Theme
	styles Styles
	config Config

	blocks     []MessageBlock
	blockFocus int // index of focused notice block (-1 = none)

	state   agent.State
	running bool
	cancel  context.CancelFunc
	eventCh chan agent.Event
	doneCh  chan TurnDoneMsg
	err     error
	ready   bool
}

// New creates a Model. history is rendered before the first turn, for
// example a priming preamble.
func New(run TurnFunc, history []converse.Entry, theme converse.Theme, cfg Config) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message, or exit to quit..."
	ti.Prompt = ""
	ti.Focus()
	ti.CharLimit = 0

	styles := NewStyles(theme)
	m := Model{
		Input:      ti,
		run:        run,
		theme:      theme,
		styles:     styles,
		config:     cfg,
		blockFocus: -1,
	}
	for _, e := range history {
		m.blocks = append(m.blocks, blockFor(e, theme, styles))
	}
	return m.updateBlockFocus()
}

// Running returns whether a turn is in progress.
func (m Model) Running() bool { return m.running }

// Err returns the error of the last turn, if any.
func (m Model) Err() error { return m.err }

// State returns the loop state last reported by the running turn.
func (m Model) State() agent.State { return m.state }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case EventMsg:
		m = m.processEvent(msg.Event)
		m.Viewport.SetContent(m.renderContent())
		m.Viewport.GotoBottom()
		if m.eventCh != nil {
			return m, listenForEvent(m.eventCh, m.doneCh)
		}
		return m, nil

	case TurnDoneMsg:
		m.running = false
		m.cancel = nil
		m.eventCh = nil
		m.doneCh = nil
		m.state = agent.StateAwaitingUserInput
		switch {
		case errors.Is(msg.Err, converse.ErrTerminated):
			return m, tea.Quit
		case msg.Err != nil && !errors.Is(msg.Err, context.Canceled):
			m.err = msg.Err
			m.blocks = append(m.blocks, NewErrorBlock(msg.Err, m.styles))
			m.Viewport.SetContent(m.renderContent())
			m.Viewport.GotoBottom()
		}
		return m, m.Input.Focus()
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)
	if !m.running {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	var b strings.Builder
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.Input.View())
	return b.String()
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	// Input line, status line and the two newlines between sections.
	vpHeight := max(msg.Height-4, 1)

	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()
	m.Input.Width = msg.Width
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.running {
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyEnter:
		if m.running {
			return m, nil
		}
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		return m.submit(text)

	case tea.KeyTab:
		if !m.running && m.blockFocus >= 0 {
			block, cmd := m.blocks[m.blockFocus].Update(ToggleMsg{})
			m.blocks[m.blockFocus] = block
			m.Viewport.SetContent(m.renderContent())
			return m, cmd
		}
		return m, nil

	case tea.KeyShiftTab:
		if !m.running {
			m = m.cycleFocusPrev()
		}
		return m, nil
	}

	if m.running {
		return m, nil
	}
	// Character keys go to the input only; 'j' and 'k' are also viewport
	// scroll keys.
	var cmds []tea.Cmd
	var cmd tea.Cmd
	if msg.Type != tea.KeyRunes {
		m.Viewport, cmd = m.Viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.Input, cmd = m.Input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	m.Input.SetValue("")
	m.Input.Blur()
	m.err = nil

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.eventCh = make(chan agent.Event, 64)
	m.doneCh = make(chan TurnDoneMsg, 1)
	m.running = true

	return m, tea.Batch(
		startTurn(ctx, m.run, text, m.eventCh, m.doneCh),
		listenForEvent(m.eventCh, m.doneCh),
	)
}

func (m Model) processEvent(evt agent.Event) Model {
	switch e := evt.(type) {
	case agent.EventStateChange:
		m.state = e.To
	case agent.EventEntry:
		m.blocks = append(m.blocks, blockFor(e.Entry, m.theme, m.styles))
		m = m.updateBlockFocus()
	}
	return m
}

func (m Model) renderContent() string {
	views := make([]string, len(m.blocks))
	for i, block := range m.blocks {
		views[i] = block.View(m.Viewport.Width)
	}
	return strings.Join(views, "\n")
}

// updateBlockFocus focuses the most recent notice block.
func (m Model) updateBlockFocus() Model {
	m.blockFocus = -1
	for i := len(m.blocks) - 1; i >= 0; i-- {
		if _, ok := m.blocks[i].(*NoticeBlock); ok {
			m.blockFocus = i
			break
		}
	}
	return m
}

// cycleFocusPrev moves blockFocus to the previous notice block, wrapping
// around.
func (m Model) cycleFocusPrev() Model {
	n := len(m.blocks)
	start := m.blockFocus - 1
	if start < 0 {
		start = n - 1
	}
	for i := range n {
		idx := (start - i + n) % n
		if _, ok := m.blocks[idx].(*NoticeBlock); ok {
			m.blockFocus = idx
			return m
		}
	}
	m.blockFocus = -1
	return m
}

func (m Model) statusLine() string {
	if m.err != nil {
		return m.styles.Error.Render(m.fit(fmt.Sprintf("Error: %v", m.err)))
	}

	var left string
	switch {
	case !m.running:
		left = "Enter to send, Tab to expand, Ctrl+C to quit"
	case m.state == agent.StateDispatchingTool:
		left = "Calling tool..."
	default:
		left = "Waiting for model..."
	}
	var right string
	if m.config.ModelName != "" {
		right = fmt.Sprintf("%s · %d tools", m.config.ModelName, m.config.Tools)
	}
	return m.styles.Muted.Render(m.fit(joinStatus(left, right, m.Viewport.Width)))
}

// fit truncates s to the view width.
func (m Model) fit(s string) string {
	if m.Viewport.Width <= 0 {
		return s
	}
	return runewidth.Truncate(s, m.Viewport.Width, "…")
}

// joinStatus right-aligns right after left when both fit in width.
func joinStatus(left, right string, width int) string {
	if right == "" {
		return left
	}
	gap := width - runewidth.StringWidth(left) - runewidth.StringWidth(right)
	if gap < 1 {
		return left + " " + right
	}
	return left + strings.Repeat(" ", gap) + right
}

// startTurn runs the turn in a goroutine and signals completion.
func startTurn(ctx context.Context, run TurnFunc, input string, eventCh chan<- agent.Event, doneCh chan<- TurnDoneMsg) tea.Cmd {
	return func() tea.Msg {
		text, err := run(ctx, input, func(e agent.Event) {
			select {
			case eventCh <- e:
			case <-ctx.Done():
			}
		})
		close(eventCh)
		doneCh <- TurnDoneMsg{Text: text, Err: err}
		return nil
	}
}

// listenForEvent waits for the next event. When the channel closes it
// returns the turn's TurnDoneMsg.
func listenForEvent(ch <-chan agent.Event, doneCh <-chan TurnDoneMsg) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-ch
		if !ok {
			return <-doneCh
		}
		return EventMsg{Event: evt}
	}
}

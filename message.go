package converse

import (
	"strings"
	"time"
)

// Part is a sealed interface representing one piece of an entry's content.
// The unexported marker method prevents external implementations.
type Part interface {
	part()
}

// TextPart contains text content.
type TextPart struct {
	Text string
}

func (TextPart) part() {}

// CallPart is a request from the model to invoke a tool.
type CallPart struct {
	Name string
	Args map[string]any
}

func (CallPart) part() {}

// Entry is a single record in the conversation log.
type Entry struct {
	Role      Role
	Parts     []Part
	Timestamp time.Time
}

// NewText returns an entry holding a single text part.
func NewText(role Role, text string) Entry {
	return Entry{
		Role:      role,
		Parts:     []Part{TextPart{Text: text}},
		Timestamp: time.Now(),
	}
}

// Text returns the text parts of the entry joined with newlines.
func (e Entry) Text() string {
	return JoinText(e.Parts)
}

// JoinText concatenates all text parts with newlines, ignoring other parts.
func JoinText(parts []Part) string {
	var sb strings.Builder
	for _, p := range parts {
		tp, ok := p.(TextPart)
		if !ok {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(tp.Text)
	}
	return sb.String()
}

// Interface compliance checks.
var (
	_ Part = TextPart{}
	_ Part = CallPart{}
)

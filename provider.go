package converse

import (
	"context"
	"fmt"
	"strings"
)

// ModelGateway is a strategy interface for language model backends. It
// produces the model's next turn given the full conversation and the tool
// catalog. Implementations wrap unreachable-backend failures in
// ErrConnectivity.
type ModelGateway interface {
	Generate(ctx context.Context, conversation []Entry, tools []Tool) (Turn, error)
}

// Turn is the model's contribution to one round. By contract it carries
// either text or a single function call; Decide enforces that.
type Turn struct {
	Parts []Part
}

// TextTurn returns a Turn holding a single text part.
func TextTurn(text string) Turn {
	return Turn{Parts: []Part{TextPart{Text: text}}}
}

// CallTurn returns a Turn holding a single function call.
func CallTurn(name string, args map[string]any) Turn {
	return Turn{Parts: []Part{CallPart{Name: name, Args: args}}}
}

// Decision is the validated reading of a Turn.
type Decision struct {
	// Text is the prose of the turn. When Call is set, Text is commentary the
	// model emitted alongside the call and may be empty.
	Text string
	// Call is the requested invocation, nil for a plain answer.
	Call *CallPart
}

// Decide validates the turn. Multiple text parts are joined; text next to a
// single call is kept as commentary. More than one call returns an error
// wrapping ErrMalformedTurn.
func (t Turn) Decide() (Decision, error) {
	var d Decision
	var texts []string
	for i, p := range t.Parts {
		switch pt := p.(type) {
		case TextPart:
			if strings.TrimSpace(pt.Text) != "" {
				texts = append(texts, pt.Text)
			}
		case CallPart:
			if d.Call != nil {
				return Decision{}, fmt.Errorf("part %d: second function call %q after %q: %w", i, pt.Name, d.Call.Name, ErrMalformedTurn)
			}
			if pt.Name == "" {
				return Decision{}, fmt.Errorf("part %d: function call without name: %w", i, ErrMalformedTurn)
			}
			call := pt
			d.Call = &call
		default:
			return Decision{}, fmt.Errorf("part %d: unknown part type %T: %w", i, p, ErrMalformedTurn)
		}
	}
	d.Text = strings.Join(texts, "\n")
	return d, nil
}

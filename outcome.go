package converse

import (
	"errors"
	"strings"
)

// OutcomeKind classifies how a tool invocation ended.
type OutcomeKind int

const (
	// OutcomeSuccess: the tool ran and returned usable text.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeToolError: the tool ran and reported failure (IsError).
	OutcomeToolError
	// OutcomeEmpty: the tool reported success but returned no usable text.
	OutcomeEmpty
	// OutcomeTransport: the invoke call itself failed (network, deadline).
	OutcomeTransport
	// OutcomeValidation: the invocation was rejected before dispatch.
	OutcomeValidation
)

var outcomeKindNames = [...]string{
	OutcomeSuccess:    "success",
	OutcomeToolError:  "tool_error",
	OutcomeEmpty:      "empty",
	OutcomeTransport:  "transport",
	OutcomeValidation: "validation",
}

func (k OutcomeKind) String() string {
	if k < 0 || int(k) >= len(outcomeKindNames) {
		return "unknown"
	}
	return outcomeKindNames[k]
}

// Outcome is the tagged reading of a tool invocation. Text is the tool's
// payload for OutcomeSuccess and the failure message otherwise.
type Outcome struct {
	Kind OutcomeKind
	Text string
	Err  error
}

// Failed reports whether the outcome is anything other than a success.
func (o Outcome) Failed() bool { return o.Kind != OutcomeSuccess }

// Classify converts the raw return values of ToolExecutor.Invoke into an
// Outcome. Multi-part results are joined with newlines.
func Classify(result *ToolResult, err error) Outcome {
	if err != nil {
		if errors.Is(err, ErrValidation) {
			return Outcome{Kind: OutcomeValidation, Text: err.Error(), Err: err}
		}
		return Outcome{Kind: OutcomeTransport, Text: err.Error(), Err: err}
	}
	if result == nil {
		return Outcome{Kind: OutcomeEmpty}
	}
	text := JoinText(result.Content)
	if result.IsError {
		return Outcome{Kind: OutcomeToolError, Text: text}
	}
	if strings.TrimSpace(text) == "" {
		return Outcome{Kind: OutcomeEmpty}
	}
	return Outcome{Kind: OutcomeSuccess, Text: text}
}

package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/fwojciec/converse"
)

// AddTwoNumbers returns the addTwoNumbers tool.
func AddTwoNumbers() converse.Handler {
	return converse.Handler{
		Tool: converse.Tool{
			Name:        "addTwoNumbers",
			Description: "Add two numbers",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"a": {"type": "number", "description": "The first addend"},
					"b": {"type": "number", "description": "The second addend"}
				},
				"required": ["a", "b"]
			}`),
		},
		Run: addTwoNumbers,
	}
}

func addTwoNumbers(_ context.Context, args map[string]any) (*converse.ToolResult, error) {
	a, err := number(args, "a")
	if err != nil {
		return converse.ErrorResult(err.Error()), nil
	}
	b, err := number(args, "b")
	if err != nil {
		return converse.ErrorResult(err.Error()), nil
	}
	return converse.TextResult(fmt.Sprintf("The sum of %s and %s is %s", format(a), format(b), format(a+b))), nil
}

func format(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

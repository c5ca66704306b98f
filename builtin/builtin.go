// Package builtin provides in-process tools and a registry that serves
// handlers as a [converse.ToolHost] without a network hop.
package builtin

import (
	"encoding/json"
	"fmt"
)

// number reads a numeric argument. JSON decoding yields float64, but callers
// constructing args by hand may pass ints.
func number(args map[string]any, key string) (float64, error) {
	v, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("%s is required", key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	default:
		return 0, fmt.Errorf("%s must be a number, got %T", key, v)
	}
}

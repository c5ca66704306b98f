// Package jsonschema implements [converse.ArgsValidator] with
// github.com/xeipuuv/gojsonschema.
package jsonschema

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fwojciec/converse"
	"github.com/xeipuuv/gojsonschema"
)

// Compile-time interface check.
var _ converse.ArgsValidator = (*Validator)(nil)

// Validator checks invocation arguments against each tool's parameter
// schema. Compiled schemas are cached by tool name and schema text.
type Validator struct {
	mu      sync.Mutex
	schemas map[string]*gojsonschema.Schema
}

// New creates a Validator.
func New() *Validator {
	return &Validator{schemas: make(map[string]*gojsonschema.Schema)}
}

// ValidateArgs returns an error wrapping [converse.ErrValidation] when args
// do not satisfy the tool's schema. Tools without a schema accept anything.
func (v *Validator) ValidateArgs(tool converse.Tool, args map[string]any) error {
	if len(tool.Parameters) == 0 {
		return nil
	}
	schema, err := v.compile(tool)
	if err != nil {
		return fmt.Errorf("jsonschema: %s: invalid schema: %w: %w", tool.Name, err, converse.ErrValidation)
	}

	if args == nil {
		args = map[string]any{}
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return fmt.Errorf("jsonschema: %s: %w: %w", tool.Name, err, converse.ErrValidation)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("invalid arguments: %s: %w", strings.Join(msgs, "; "), converse.ErrValidation)
}

func (v *Validator) compile(tool converse.Tool) (*gojsonschema.Schema, error) {
	key := tool.Name + "\x00" + string(tool.Parameters)

	v.mu.Lock()
	defer v.mu.Unlock()
	if s, ok := v.schemas[key]; ok {
		return s, nil
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(tool.Parameters))
	if err != nil {
		return nil, err
	}
	v.schemas[key] = s
	return s, nil
}

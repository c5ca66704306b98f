package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/converse"
	conversejson "github.com/fwojciec/converse/json"
)

// acknowledgement is the model entry that follows a text priming prompt.
const acknowledgement = "Understood. I'll follow these instructions for the rest of our conversation."

// loadPriming reads the entries every new session starts with. A .json path
// is a saved transcript; any other file is a prompt sent as a user entry and
// acknowledged by the model. An empty path yields no entries.
func loadPriming(path string) ([]converse.Entry, error) {
	if path == "" {
		return nil, nil
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		t, err := conversejson.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load priming transcript: %w", err)
		}
		return t.Entries, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read priming prompt: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return nil, nil
	}
	return []converse.Entry{
		converse.NewText(converse.RoleUser, prompt),
		converse.NewText(converse.RoleModel, acknowledgement),
	}, nil
}

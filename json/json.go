// Package json implements the transcript wire format used by the HTTP chat
// API and by seed transcripts loaded at session start.
package json

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fwojciec/converse"
)

// Transcript is a session's identifier and its conversation entries.
type Transcript struct {
	ID      string
	State   string
	Entries []converse.Entry
}

// envelope is the v1 wire format for a transcript.
type envelope struct {
	Version int        `json:"version"`
	ID      string     `json:"id,omitempty"`
	State   string     `json:"state,omitempty"`
	Entries []entryDTO `json:"entries"`
}

// entryDTO is the JSON representation of an Entry.
type entryDTO struct {
	Role      string    `json:"role"`
	Parts     []partDTO `json:"parts"`
	Timestamp time.Time `json:"timestamp"`
}

// partDTO is the JSON representation of a Part with a type discriminator.
type partDTO struct {
	Type string          `json:"type"`
	Text *string         `json:"text,omitempty"`
	Name *string         `json:"name,omitempty"`
	Args json.RawMessage `json:"args,omitempty"`
}

// MarshalTranscript serializes a Transcript to JSON in v1 envelope format.
func MarshalTranscript(t Transcript) ([]byte, error) {
	env := envelope{
		Version: 1,
		ID:      t.ID,
		State:   t.State,
		Entries: make([]entryDTO, len(t.Entries)),
	}
	for i, e := range t.Entries {
		dto, err := marshalEntry(e)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		env.Entries[i] = dto
	}
	return json.MarshalIndent(env, "", "  ")
}

// UnmarshalTranscript deserializes a Transcript from JSON in v1 envelope
// format. Every entry is checked with [converse.ValidateEntry].
func UnmarshalTranscript(data []byte) (Transcript, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Transcript{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Version != 1 {
		return Transcript{}, fmt.Errorf("unsupported envelope version: %d", env.Version)
	}
	entries := make([]converse.Entry, len(env.Entries))
	for i, dto := range env.Entries {
		e, err := unmarshalEntry(dto)
		if err != nil {
			return Transcript{}, fmt.Errorf("entry %d: %w", i, err)
		}
		entries[i] = e
	}
	return Transcript{ID: env.ID, State: env.State, Entries: entries}, nil
}

// Load reads a Transcript from a JSON file.
func Load(path string) (Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Transcript{}, fmt.Errorf("read file: %w", err)
	}
	return UnmarshalTranscript(data)
}

func marshalEntry(e converse.Entry) (entryDTO, error) {
	if err := converse.ValidateEntry(e); err != nil {
		return entryDTO{}, err
	}
	parts := make([]partDTO, len(e.Parts))
	for i, p := range e.Parts {
		switch v := p.(type) {
		case converse.TextPart:
			parts[i] = partDTO{Type: "text", Text: &v.Text}
		case converse.CallPart:
			args, err := json.Marshal(v.Args)
			if err != nil {
				return entryDTO{}, fmt.Errorf("part %d: marshal args: %w", i, err)
			}
			parts[i] = partDTO{Type: "call", Name: &v.Name, Args: args}
		}
	}
	return entryDTO{Role: string(e.Role), Parts: parts, Timestamp: e.Timestamp}, nil
}

func unmarshalEntry(dto entryDTO) (converse.Entry, error) {
	parts := make([]converse.Part, len(dto.Parts))
	for i, p := range dto.Parts {
		switch p.Type {
		case "text":
			var text string
			if p.Text != nil {
				text = *p.Text
			}
			parts[i] = converse.TextPart{Text: text}
		case "call":
			var name string
			if p.Name != nil {
				name = *p.Name
			}
			var args map[string]any
			if len(p.Args) > 0 {
				if err := json.Unmarshal(p.Args, &args); err != nil {
					return converse.Entry{}, fmt.Errorf("part %d: unmarshal args: %w", i, err)
				}
			}
			parts[i] = converse.CallPart{Name: name, Args: args}
		default:
			return converse.Entry{}, fmt.Errorf("part %d: unknown part type: %q", i, p.Type)
		}
	}
	e := converse.Entry{Role: converse.Role(dto.Role), Parts: parts, Timestamp: dto.Timestamp}
	if err := converse.ValidateEntry(e); err != nil {
		return converse.Entry{}, err
	}
	return e, nil
}

// Package protocol defines the JSON payloads exchanged over the local and
// remote transports, and how an incoming payload is classified.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/teslashibe/go-moodlight/pkg/emotions"
)

// Source identifies who produced a message.
type Source string

const (
	SourceAI  Source = "ai"  // emotion classifier
	SourceWeb Source = "web" // remote web controller
)

// CommandType identifies an actuator command.
type CommandType string

const (
	TypeEmotion    CommandType = "emotion"
	TypeColor      CommandType = "color"
	TypeBrightness CommandType = "brightness"
)

// EmotionEvent is a smoothed classification published by the classifier.
type EmotionEvent struct {
	Source  Source      `json:"source"`
	Type    CommandType `json:"type"`
	Emotion string      `json:"emotion"`
}

// NewEmotionEvent creates an event for a label.
func NewEmotionEvent(l emotions.Label) EmotionEvent {
	return EmotionEvent{
		Source:  SourceAI,
		Type:    TypeEmotion,
		Emotion: string(l),
	}
}

// Bytes returns the JSON-encoded event.
func (e EmotionEvent) Bytes() ([]byte, error) {
	return json.Marshal(e)
}

// ControlMessage switches the routing mode. AI true hands authority to
// the local transport.
type ControlMessage struct {
	Source Source `json:"source"`
	AI     bool   `json:"ai"`
}

// Bytes returns the JSON-encoded control message.
func (c ControlMessage) Bytes() ([]byte, error) {
	return json.Marshal(c)
}

// StatusUpdate reports the actuator's current light setting upstream.
type StatusUpdate struct {
	Color      string `json:"color"`
	Brightness int    `json:"brightness"`
}

// NewStatusUpdate creates a status update from a palette setting.
func NewStatusUpdate(s emotions.Setting) StatusUpdate {
	return StatusUpdate{Color: s.Color, Brightness: s.Brightness}
}

// Bytes returns the JSON-encoded update.
func (u StatusUpdate) Bytes() ([]byte, error) {
	return json.Marshal(u)
}

// Command is an instruction for the actuator.
type Command struct {
	Type  CommandType `json:"type"`
	Value string      `json:"value"`
}

// NewEmotionCommand creates a command that the actuator resolves through
// the palette.
func NewEmotionCommand(l emotions.Label) Command {
	return Command{Type: TypeEmotion, Value: string(l)}
}

// NewColorCommand creates a direct color command.
func NewColorCommand(color string) Command {
	return Command{Type: TypeColor, Value: color}
}

// NewBrightnessCommand creates a direct brightness command.
func NewBrightnessCommand(brightness int) Command {
	return Command{Type: TypeBrightness, Value: strconv.Itoa(brightness)}
}

// Valid reports whether the command has a known type and a value.
func (c Command) Valid() bool {
	switch c.Type {
	case TypeEmotion, TypeColor, TypeBrightness:
		return c.Value != ""
	}
	return false
}

// fields is a decoded JSON object with values left raw.
type fields map[string]json.RawMessage

func decodeObject(payload []byte) (fields, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}

	var f fields
	if err := json.Unmarshal(payload, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if f == nil {
		return nil, fmt.Errorf("%w: not a JSON object", ErrMalformed)
	}
	return f, nil
}

// str returns a field as a string. Missing, null and non-string values
// report false.
func (f fields) str(key string) (string, bool) {
	raw, ok := f[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// present reports whether key exists with a non-null value.
func (f fields) present(key string) bool {
	raw, ok := f[key]
	return ok && !bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// scalar returns a string or number field as text.
func (f fields) scalar(key string) (string, bool) {
	if s, ok := f.str(key); ok {
		return s, true
	}
	raw, ok := f[key]
	if !ok {
		return "", false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", false
	}
	return n.String(), true
}

// truthy interprets the ai flag: JSON true or the string "true" in any case.
// Any other non-null value is false.
func truthy(raw json.RawMessage) bool {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.EqualFold(strings.TrimSpace(s), "true")
	}
	return false
}

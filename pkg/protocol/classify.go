package protocol

import (
	"fmt"

	"github.com/teslashibe/go-moodlight/pkg/emotions"
)

// Kind tells control messages from data messages.
type Kind int

const (
	KindData Kind = iota
	KindControl
)

// String returns the kind name used in logs and metrics.
func (k Kind) String() string {
	if k == KindControl {
		return "control"
	}
	return "data"
}

// Envelope is a classified transport payload.
type Envelope struct {
	Kind Kind

	// Control is set for KindControl.
	Control *ControlMessage

	// Raw is the payload as received.
	Raw []byte

	fields fields
}

// Classify parses a payload. A JSON object with source "web" and a
// non-null "ai" field is a control message; every other object is data.
// Anything that is not a JSON object is an error.
func Classify(payload []byte) (*Envelope, error) {
	f, err := decodeObject(payload)
	if err != nil {
		return nil, err
	}

	env := &Envelope{Kind: KindData, Raw: payload, fields: f}

	source, _ := f.str("source")
	if Source(source) == SourceWeb && f.present("ai") {
		env.Kind = KindControl
		env.Control = &ControlMessage{
			Source: SourceWeb,
			AI:     truthy(f["ai"]),
		}
	}

	return env, nil
}

// Command derives an actuator command from a data envelope.
//
// A payload typed "color" or "brightness" with a value passes through as
// that command. Otherwise the "emotion" field (or the value of an
// "emotion"-typed payload) becomes an emotion command.
func (e *Envelope) Command() (Command, error) {
	if e.Kind != KindData {
		return Command{}, ErrNotData
	}

	typ, _ := e.fields.str("type")
	switch CommandType(typ) {
	case TypeColor, TypeBrightness:
		if v, ok := e.fields.scalar("value"); ok && v != "" {
			return Command{Type: CommandType(typ), Value: v}, nil
		}
		return Command{}, fmt.Errorf("%w: %s command without value", ErrNoCommand, typ)
	}

	if name, ok := e.fields.str("emotion"); ok && name != "" {
		return Command{Type: TypeEmotion, Value: name}, nil
	}
	if CommandType(typ) == TypeEmotion {
		if v, ok := e.fields.str("value"); ok && v != "" {
			return Command{Type: TypeEmotion, Value: v}, nil
		}
	}

	return Command{}, ErrNoCommand
}

// Emotion returns the label of an emotion command, or false when the
// command is not an emotion or names an unknown label.
func (c Command) Emotion() (emotions.Label, bool) {
	if c.Type != TypeEmotion {
		return "", false
	}
	return emotions.ParseLabel(c.Value)
}

// ParseCommand classifies a payload and derives its actuator command.
func ParseCommand(payload []byte) (Command, error) {
	env, err := Classify(payload)
	if err != nil {
		return Command{}, err
	}
	return env.Command()
}

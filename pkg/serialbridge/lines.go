package serialbridge

import (
	"fmt"

	"github.com/teslashibe/go-moodlight/pkg/emotions"
	"github.com/teslashibe/go-moodlight/pkg/protocol"
)

// ColorLine formats a color line.
func ColorLine(color string) string {
	return "COLOR:" + color + "\n"
}

// BrightnessLine formats a brightness line.
func BrightnessLine(brightness string) string {
	return "BRIGHTNESS:" + brightness + "\n"
}

// Lines returns the lines a command produces, in write order. An emotion
// command is resolved through the palette into a color line followed by a
// brightness line.
func Lines(cmd protocol.Command, palette *emotions.Palette) ([]string, error) {
	switch cmd.Type {
	case protocol.TypeColor:
		return []string{ColorLine(cmd.Value)}, nil
	case protocol.TypeBrightness:
		return []string{BrightnessLine(cmd.Value)}, nil
	case protocol.TypeEmotion:
		s := palette.MapName(cmd.Value)
		return []string{
			ColorLine(s.Color),
			BrightnessLine(fmt.Sprint(s.Brightness)),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
}

package emotions

import (
	"fmt"
	"regexp"
)

// Setting is the light output for one label.
type Setting struct {
	// Color is an RGB hex string, "#RRGGBB".
	Color string `yaml:"color" json:"color"`

	// Brightness is 0-255.
	Brightness int `yaml:"brightness" json:"brightness"`
}

// DefaultSetting is used for any label without a palette entry.
var DefaultSetting = Setting{Color: "#FFFFFF", Brightness: 50}

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Validate checks the color format and brightness range.
func (s Setting) Validate() error {
	if !colorPattern.MatchString(s.Color) {
		return fmt.Errorf("%w: color %q is not #RRGGBB", ErrInvalidSetting, s.Color)
	}
	if s.Brightness < 0 || s.Brightness > 255 {
		return fmt.Errorf("%w: brightness %d out of range 0-255", ErrInvalidSetting, s.Brightness)
	}
	return nil
}

// Palette maps labels to light settings. It is immutable once built and
// safe for concurrent use.
type Palette struct {
	settings map[Label]Setting
}

// builtIn is the stock palette.
var builtIn = map[Label]Setting{
	Angry:     {Color: "#FF0000", Brightness: 100},
	Disgusted: {Color: "#00FF00", Brightness: 60},
	Fear:      {Color: "#800080", Brightness: 40},
	Happy:     {Color: "#FFFF00", Brightness: 90},
	Sad:       {Color: "#0000FF", Brightness: 30},
	Surprised: {Color: "#FFA500", Brightness: 80},
	Neutral:   {Color: "#FFFFFF", Brightness: 50},
}

// DefaultPalette returns the stock palette.
func DefaultPalette() *Palette {
	p, _ := NewPalette(nil)
	return p
}

// NewPalette returns the stock palette with overrides applied.
// Override keys are label names, matched like ParseLabel.
func NewPalette(overrides map[string]Setting) (*Palette, error) {
	settings := make(map[Label]Setting, len(builtIn))
	for l, s := range builtIn {
		settings[l] = s
	}

	for name, s := range overrides {
		l, ok := ParseLabel(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLabel, name)
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("palette entry %s: %w", l, err)
		}
		settings[l] = s
	}

	return &Palette{settings: settings}, nil
}

// Map returns the setting for a label, or DefaultSetting when the label
// has no entry.
func (p *Palette) Map(l Label) Setting {
	if p == nil {
		return DefaultSetting
	}
	if s, ok := p.settings[l]; ok {
		return s
	}
	return DefaultSetting
}

// MapName is Map for a raw label string.
func (p *Palette) MapName(name string) Setting {
	l, ok := ParseLabel(name)
	if !ok {
		return DefaultSetting
	}
	return p.Map(l)
}

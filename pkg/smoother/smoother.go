// Package smoother turns a noisy per-frame stream of emotion labels into a
// debounced, periodic stream of label changes.
//
// Each observed label is converted to its numeric value and pushed into a
// bounded window. On every tick the window mean is rounded and mapped back
// to a label, which is emitted only if it is known and differs from the
// previously emitted one. At most one label is emitted per tick.
//
// Because the mean is what gets mapped back, the emitted label can be one
// that was never observed: an even mix of Happy (3) and Angry (-3) averages
// to 0 and emits Neutral.
package smoother

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-moodlight/pkg/emotions"
)

// Defaults match a ~30 fps classifier and one update per second.
const (
	DefaultWindowSize = 30
	DefaultInterval   = time.Second
)

// Config configures a Smoother.
type Config struct {
	// WindowSize is the number of most recent samples averaged.
	WindowSize int `yaml:"window_size" json:"window_size"`

	// Interval is the wall-clock period between ticks.
	Interval time.Duration `yaml:"interval" json:"interval"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		WindowSize: DefaultWindowSize,
		Interval:   DefaultInterval,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.WindowSize <= 0 {
		return fmt.Errorf("window_size must be positive, got %d", c.WindowSize)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", c.Interval)
	}
	return nil
}

// Smoother debounces labels. Observe and Tick are not safe for concurrent
// use; Run owns the Smoother for its lifetime.
type Smoother struct {
	cfg    Config
	logger *slog.Logger
	window *Window
	last   emotions.Label
}

// New creates a Smoother.
func New(cfg Config, logger *slog.Logger) (*Smoother, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Smoother{
		cfg:    cfg,
		logger: logger,
		window: NewWindow(cfg.WindowSize),
	}, nil
}

// Observe records one classification.
func (s *Smoother) Observe(l emotions.Label) {
	s.window.Push(l.Value())
}

// Tick resolves the window to a label. It returns false when the window is
// empty, the mean has no label, or the label equals the last one emitted.
// A true result is remembered as the last emitted label.
func (s *Smoother) Tick() (emotions.Label, bool) {
	mean, ok := s.window.Mean()
	if !ok {
		return "", false
	}

	l := emotions.Resolve(mean)
	if l == emotions.Unknown {
		s.logger.Debug("smoothed value has no label", "mean", mean)
		return "", false
	}
	if l == s.last {
		return "", false
	}

	s.last = l
	return l, true
}

// Last returns the most recently emitted label, or "" if none.
func (s *Smoother) Last() emotions.Label {
	return s.last
}

// Window exposes the sample window for inspection.
func (s *Smoother) Window() *Window {
	return s.window
}

// Run observes samples and ticks every Interval until ctx is done or
// samples is closed. When samples closes, one last tick flushes what was
// observed since the previous one. emit is called from Run's goroutine;
// its errors are logged and do not undo the emission.
func (s *Smoother) Run(ctx context.Context, samples <-chan emotions.Label, emit func(emotions.Label) error) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.Info("smoother started",
		"window", s.cfg.WindowSize,
		"interval", s.cfg.Interval,
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("smoother stopped")
			return

		case l, ok := <-samples:
			if !ok {
				s.flush(emit)
				s.logger.Info("smoother stopped (samples closed)")
				return
			}
			s.Observe(l)

		case <-ticker.C:
			s.flush(emit)
		}
	}
}

// flush ticks once and emits the result, if any.
func (s *Smoother) flush(emit func(emotions.Label) error) {
	l, ok := s.Tick()
	if !ok {
		return
	}
	if err := emit(l); err != nil {
		s.logger.Warn("emit failed", "emotion", l, "error", err)
		return
	}
	s.logger.Info("emotion emitted", "emotion", l)
}

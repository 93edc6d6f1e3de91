package gateway

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-moodlight/pkg/emotions"
	"github.com/teslashibe/go-moodlight/pkg/metrics"
	"github.com/teslashibe/go-moodlight/pkg/mode"
	"github.com/teslashibe/go-moodlight/pkg/protocol"
	"github.com/teslashibe/go-moodlight/pkg/transport"
	"github.com/teslashibe/go-moodlight/pkg/web"
)

// Transport is one publish/subscribe connection. *transport.Client and
// *transport.Mock satisfy it.
type Transport interface {
	Publish(topic string, payload []byte) error
	Subscribe(topic string) (<-chan transport.Message, error)
	Done() <-chan struct{}
	Close() error
}

// Connector is implemented by transports that need an explicit connect.
type Connector interface {
	Connect(ctx context.Context) error
}

// Actuator accepts commands for the light. *serialbridge.Bridge
// satisfies it.
type Actuator interface {
	Enqueue(cmd protocol.Command) bool
	Enabled() bool
	Close() error
}

// Dashboard receives status changes. *web.Server satisfies it.
type Dashboard interface {
	UpdateState(update func(*web.Status))
}

// Options carries the gateway's collaborators. Local and Remote are
// required; the rest are optional stages.
type Options struct {
	Local     Transport
	Remote    Transport
	Actuator  Actuator
	Palette   *emotions.Palette
	Mode      *mode.Controller
	Metrics   *metrics.Metrics
	Dashboard Dashboard
	Logger    *slog.Logger
}

// Gateway wires the two listeners, the mode controller and the actuator.
type Gateway struct {
	cfg       Config
	logger    *slog.Logger
	local     Transport
	remote    Transport
	actuator  Actuator
	palette   *emotions.Palette
	mode      *mode.Controller
	metrics   *metrics.Metrics
	dashboard Dashboard

	running atomic.Bool
	wg      sync.WaitGroup

	// Stats
	forwarded   atomic.Int64
	dropped     atomic.Int64
	malformed   atomic.Int64
	controls    atomic.Int64
	commands    atomic.Int64
	updatesSent atomic.Int64
}

// New creates a gateway. The mode starts as Remote unless opts.Mode says
// otherwise.
func New(cfg Config, opts Options) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Local == nil || opts.Remote == nil {
		return nil, ErrNoTransport
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Palette == nil {
		opts.Palette = emotions.DefaultPalette()
	}
	if opts.Mode == nil {
		opts.Mode = mode.NewController()
	}

	return &Gateway{
		cfg:       cfg,
		logger:    opts.Logger.With("component", "gateway"),
		local:     opts.Local,
		remote:    opts.Remote,
		actuator:  opts.Actuator,
		palette:   opts.Palette,
		mode:      opts.Mode,
		metrics:   opts.Metrics,
		dashboard: opts.Dashboard,
	}, nil
}

// Mode returns the routing mode controller.
func (g *Gateway) Mode() *mode.Controller {
	return g.mode
}

// HandleRemote processes one payload from the remote transport. Control
// messages set the mode. While the mode is Remote, data messages are
// relayed byte for byte to the local emotion topic and drive the actuator;
// in Local mode they are dropped.
func (g *Gateway) HandleRemote(payload []byte) {
	env, err := protocol.Classify(payload)
	if err != nil {
		g.malformed.Add(1)
		g.metrics.ObserveDrop(metrics.ReasonMalformed)
		g.logger.Warn("dropping malformed remote message", "transport", "remote", "error", err)
		return
	}
	g.metrics.ObserveMessage("remote", env.Kind.String())

	if env.Kind == protocol.KindControl {
		g.applyControl(*env.Control)
		return
	}

	if g.mode.IsLocal() {
		g.dropped.Add(1)
		g.metrics.ObserveDrop(metrics.ReasonLocalMode)
		g.logger.Debug("local mode active, dropping remote data")
		return
	}

	if err := g.local.Publish(g.cfg.Topics.Emotion, payload); err != nil {
		g.dropped.Add(1)
		g.metrics.ObserveDrop(metrics.ReasonPublish)
		g.logger.Warn("forward to local transport failed", "error", err)
	} else {
		g.forwarded.Add(1)
		g.metrics.ObserveForward()
		g.logger.Debug("forwarded remote message", "bytes", len(payload))
	}

	// The forwarded copy comes back on the local listener, which ignores
	// it in Remote mode, so the light is driven from here exactly once.
	cmd, err := env.Command()
	if err != nil {
		g.metrics.ObserveDrop(metrics.ReasonNoCommand)
		g.logger.Debug("remote data carries no actuator command", "error", err)
		return
	}
	g.actuate(cmd)
}

func (g *Gateway) applyControl(msg protocol.ControlMessage) {
	g.controls.Add(1)
	changed := g.mode.ApplyControl(msg)
	current := g.mode.Current()
	g.metrics.ObserveMode(current == mode.Local, changed)

	if !changed {
		g.logger.Debug("mode unchanged", "mode", current.String())
		return
	}
	g.logger.Info("routing mode switched", "mode", current.String(), "ai", msg.AI)

	if g.dashboard != nil {
		g.dashboard.UpdateState(func(s *web.Status) {
			s.Mode = current.String()
		})
	}
}

// HandleLocal processes one payload from the local transport. Outside
// Local mode it is ignored. Otherwise it becomes an actuator command.
func (g *Gateway) HandleLocal(payload []byte) {
	if !g.mode.IsLocal() {
		g.dropped.Add(1)
		g.metrics.ObserveDrop(metrics.ReasonRemoteMode)
		g.logger.Debug("remote mode active, ignoring local message")
		return
	}

	cmd, err := protocol.ParseCommand(payload)
	if err != nil {
		reason := metrics.ReasonMalformed
		if errors.Is(err, protocol.ErrNoCommand) {
			reason = metrics.ReasonNoCommand
		}
		g.malformed.Add(1)
		g.metrics.ObserveDrop(reason)
		g.logger.Warn("dropping local message", "transport", "local", "error", err)
		return
	}
	g.metrics.ObserveMessage("local", protocol.KindData.String())
	g.actuate(cmd)
}

// actuate queues cmd for the light, then reports the resulting setting to
// the dashboard and, for emotion commands, upstream.
func (g *Gateway) actuate(cmd protocol.Command) {
	g.commands.Add(1)

	if g.actuator != nil {
		g.actuator.Enqueue(cmd)
	}

	g.logger.Info("actuator command", "type", string(cmd.Type), "value", cmd.Value)

	if cmd.Type != protocol.TypeEmotion {
		g.report(cmd, nil)
		return
	}

	label, _ := cmd.Emotion()
	setting := g.palette.MapName(cmd.Value)
	g.report(cmd, &setting)

	if g.cfg.StatusUpdates && g.cfg.Topics.Update != "" {
		g.publishStatus(setting)
	}
	g.logger.Debug("light setting", "emotion", label.String(), "color", setting.Color, "brightness", setting.Brightness)
}

// report pushes the command's effect to the dashboard.
func (g *Gateway) report(cmd protocol.Command, setting *emotions.Setting) {
	if g.dashboard == nil {
		return
	}
	g.dashboard.UpdateState(func(s *web.Status) {
		switch {
		case setting != nil:
			s.LastEmotion = cmd.Value
			s.Color = setting.Color
			s.Brightness = setting.Brightness
		case cmd.Type == protocol.TypeColor:
			s.Color = cmd.Value
		case cmd.Type == protocol.TypeBrightness:
			if b, err := strconv.Atoi(cmd.Value); err == nil {
				s.Brightness = b
			}
		}
	})
}

func (g *Gateway) publishStatus(setting emotions.Setting) {
	data, err := protocol.NewStatusUpdate(setting).Bytes()
	if err != nil {
		g.logger.Warn("encode status update", "error", err)
		return
	}
	if err := g.remote.Publish(g.cfg.Topics.Update, data); err != nil {
		g.logger.Warn("status update failed", "transport", "remote", "error", err)
		return
	}
	g.updatesSent.Add(1)
	g.metrics.ObserveStatusUpdate()
}

// Stats returns gateway statistics.
func (g *Gateway) Stats() Stats {
	return Stats{
		Mode:        g.mode.Current().String(),
		Forwarded:   g.forwarded.Load(),
		Dropped:     g.dropped.Load(),
		Malformed:   g.malformed.Load(),
		Controls:    g.controls.Load(),
		Commands:    g.commands.Load(),
		UpdatesSent: g.updatesSent.Load(),
	}
}

// Stats contains gateway statistics.
type Stats struct {
	Mode        string `json:"mode"`
	Forwarded   int64  `json:"forwarded"`
	Dropped     int64  `json:"dropped"`
	Malformed   int64  `json:"malformed"`
	Controls    int64  `json:"controls"`
	Commands    int64  `json:"commands"`
	UpdatesSent int64  `json:"updates_sent"`
}

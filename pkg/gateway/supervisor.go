package gateway

import (
	"context"
	"fmt"

	"github.com/teslashibe/go-moodlight/pkg/transport"
	"github.com/teslashibe/go-moodlight/pkg/web"
)

// Run connects both transports, starts one receive loop per transport and
// blocks until ctx is done. A transport that fails to connect or subscribe
// is logged and its listener is not started; the other keeps running.
//
// On cancellation the loops are stopped and joined, both transports are
// closed, and the actuator is closed last so queued commands drain before
// the serial port is released.
func (g *Gateway) Run(ctx context.Context) error {
	if !g.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer g.running.Store(false)

	remoteUp := g.start(ctx, "remote", g.remote, g.HandleRemote)
	localUp := g.start(ctx, "local", g.local, g.HandleLocal)

	if g.dashboard != nil {
		actuatorUp := g.actuator != nil && g.actuator.Enabled()
		g.dashboard.UpdateState(func(s *web.Status) {
			s.Mode = g.mode.Current().String()
			s.RemoteConnected = remoteUp
			s.LocalConnected = localUp
			s.SerialEnabled = actuatorUp
		})
	}

	g.logger.Info("gateway running",
		"mode", g.mode.Current().String(),
		"remote", remoteUp,
		"local", localUp,
		"topic", g.cfg.Topics.Emotion,
	)

	<-ctx.Done()
	g.logger.Info("shutting down gateway")

	g.wg.Wait()

	if err := g.remote.Close(); err != nil {
		g.logger.Warn("close transport", "transport", "remote", "error", err)
	}
	if err := g.local.Close(); err != nil {
		g.logger.Warn("close transport", "transport", "local", "error", err)
	}

	if g.actuator != nil {
		if err := g.actuator.Close(); err != nil {
			g.logger.Warn("close actuator", "error", err)
		}
	}

	g.logger.Info("gateway stopped", "forwarded", g.forwarded.Load(), "commands", g.commands.Load())
	return nil
}

// start connects and subscribes t, then launches its receive loop. It
// reports whether the listener is running.
func (g *Gateway) start(ctx context.Context, name string, t Transport, handle func([]byte)) bool {
	if err := connect(ctx, t); err != nil {
		g.logger.Error("transport unavailable, listener not started", "transport", name, "error", err)
		return false
	}

	msgs, err := t.Subscribe(g.cfg.Topics.Emotion)
	if err != nil {
		g.logger.Error("subscribe failed, listener not started", "transport", name, "error", err)
		return false
	}

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		g.listen(ctx, name, msgs, t.Done(), handle)
	}()
	return true
}

func connect(ctx context.Context, t Transport) error {
	c, ok := t.(Connector)
	if !ok {
		return nil
	}
	if err := c.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

// listen is the receive loop for one transport. Messages are handled one
// at a time in arrival order.
func (g *Gateway) listen(ctx context.Context, name string, msgs <-chan transport.Message, done <-chan struct{}, handle func([]byte)) {
	g.logger.Debug("listener started", "transport", name)
	defer g.logger.Debug("listener stopped", "transport", name)

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case msg := <-msgs:
			handle(msg.Payload)
		}
	}
}

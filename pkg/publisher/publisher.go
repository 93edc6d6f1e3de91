// Package publisher turns raw per-frame classifier labels into smoothed
// emotion events on the local transport.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/teslashibe/go-moodlight/pkg/emotions"
	"github.com/teslashibe/go-moodlight/pkg/metrics"
	"github.com/teslashibe/go-moodlight/pkg/protocol"
	"github.com/teslashibe/go-moodlight/pkg/smoother"
)

// Transport publishes payloads. *transport.Client satisfies it.
type Transport interface {
	Publish(topic string, payload []byte) error
}

// Publisher sends emotion events on one topic.
type Publisher struct {
	transport Transport
	topic     string
	logger    *slog.Logger
	metrics   *metrics.Metrics

	sent   atomic.Int64
	failed atomic.Int64
}

// New creates a publisher for topic. m may be nil.
func New(t Transport, topic string, m *metrics.Metrics, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		transport: t,
		topic:     topic,
		logger:    logger.With("component", "publisher"),
		metrics:   m,
	}
}

// Publish sends an emotion event for l.
func (p *Publisher) Publish(l emotions.Label) error {
	if !l.Known() {
		return fmt.Errorf("%w: %q", emotions.ErrUnknownLabel, l)
	}

	data, err := protocol.NewEmotionEvent(l).Bytes()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.transport.Publish(p.topic, data); err != nil {
		p.failed.Add(1)
		return fmt.Errorf("publish %s: %w", l, err)
	}

	p.sent.Add(1)
	p.metrics.ObserveEmit(l.String())
	p.logger.Debug("published emotion", "emotion", l.String(), "topic", p.topic)
	return nil
}

// Run smooths samples and publishes each emitted label until ctx is done
// or samples is closed.
func (p *Publisher) Run(ctx context.Context, s *smoother.Smoother, samples <-chan emotions.Label) {
	s.Run(ctx, samples, p.Publish)
}

// Stats returns publisher statistics.
func (p *Publisher) Stats() Stats {
	return Stats{Sent: p.sent.Load(), Failed: p.failed.Load()}
}

// Stats contains publisher statistics.
type Stats struct {
	Sent   int64 `json:"sent"`
	Failed int64 `json:"failed"`
}

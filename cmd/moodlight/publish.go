package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mlog "github.com/teslashibe/go-moodlight/internal/log"
	"github.com/teslashibe/go-moodlight/pkg/emotions"
	"github.com/teslashibe/go-moodlight/pkg/publisher"
	"github.com/teslashibe/go-moodlight/pkg/smoother"
	"github.com/teslashibe/go-moodlight/pkg/transport"
)

var (
	publishSource string
	publishLabel  string
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Smooth raw classifier labels and publish emotion events",
	Long: `Reads per-frame labels, averages them over a sliding window and
publishes a smoothed emotion event on the local broker whenever the result
changes.

Sources:
  stdin  one label per line (default)
  topic  plain or {"emotion": "..."} payloads on the raw topic

When stdin reaches EOF, one last window is evaluated and published before exit.`,
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().StringVar(&publishSource, "source", "stdin", "label source: stdin or topic")
	publishCmd.Flags().StringVar(&publishLabel, "label", "", "publish one event for this label and exit")
}

func runPublish(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	client, err := transport.New("local", cfg.Local, mlog.Component("transport"))
	if err != nil {
		return err
	}
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connect local broker: %w", err)
	}
	defer client.Close()

	pub := publisher.New(client, cfg.Topics.Emotion, nil, logger)

	if publishLabel != "" {
		l, ok := emotions.ParseLabel(publishLabel)
		if !ok {
			return fmt.Errorf("%w: %q", emotions.ErrUnknownLabel, publishLabel)
		}
		return pub.Publish(l)
	}

	s, err := smoother.New(cfg.Smoother, mlog.Component("smoother"))
	if err != nil {
		return err
	}

	samples := make(chan emotions.Label, cfg.Smoother.WindowSize)

	switch publishSource {
	case "stdin":
		go func() {
			if err := publisher.ReadLabels(ctx, os.Stdin, samples); err != nil {
				logger.Warn("label reader stopped", "error", err)
			}
		}()
	case "topic":
		if cfg.Topics.Raw == "" {
			return fmt.Errorf("topics.raw is not configured")
		}
		msgs, err := client.Subscribe(cfg.Topics.Raw)
		if err != nil {
			return err
		}
		go publisher.FromMessages(ctx, msgs, client.Done(), samples)
	default:
		return fmt.Errorf("unknown source %q (want stdin or topic)", publishSource)
	}

	pub.Run(ctx, s, samples)

	st := pub.Stats()
	logger.Info("publisher stopped", "sent", st.Sent, "failed", st.Failed)
	return nil
}

// Command moodlight routes facial-expression events between a remote web
// controller and a local classifier, and drives a serial light.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-moodlight/internal/config"
	mlog "github.com/teslashibe/go-moodlight/internal/log"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "moodlight",
	Short: "Emotion routing gateway for a serial mood light",
	Long: `moodlight relays emotion events between a remote MQTT broker (the web
controller) and a local MQTT broker (the face classifier), and drives an
RGB light over a serial line.

Configuration is read from --config (YAML) and then overridden by:
  MOODLIGHT_LOCAL_BROKER   local broker URL
  MOODLIGHT_REMOTE_BROKER  remote broker URL
  MOODLIGHT_SERIAL_PORT    serial device
  MOODLIGHT_LOG_LEVEL      debug, info, warn, error`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides config)")

	rootCmd.AddCommand(gatewayCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and installs the logger.
func setup() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logger := mlog.Init(cfg.Log.Level, cfg.Log.Format)
	return cfg, logger, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

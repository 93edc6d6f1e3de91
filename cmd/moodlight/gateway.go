package main

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	mlog "github.com/teslashibe/go-moodlight/internal/log"
	"github.com/teslashibe/go-moodlight/pkg/gateway"
	"github.com/teslashibe/go-moodlight/pkg/metrics"
	"github.com/teslashibe/go-moodlight/pkg/serialbridge"
	"github.com/teslashibe/go-moodlight/pkg/transport"
	"github.com/teslashibe/go-moodlight/pkg/web"
)

var (
	noSerial      bool
	webAddr       string
	statusUpdates bool
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Run the routing gateway",
	Long: `Connects to both brokers, follows control messages from the web
controller, relays remote events while in remote mode and drives the serial
light from local events while in local mode. Runs until interrupted.`,
	RunE: runGateway,
}

func init() {
	gatewayCmd.Flags().BoolVar(&noSerial, "no-serial", false, "disable the serial light")
	gatewayCmd.Flags().StringVar(&webAddr, "web", "", "enable the status dashboard on this address")
	gatewayCmd.Flags().BoolVar(&statusUpdates, "status-updates", false, "publish light settings on the remote update topic")
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if noSerial {
		cfg.Serial.Enabled = false
	}
	if webAddr != "" {
		cfg.Web.Enabled = true
		cfg.Web.Addr = webAddr
	}
	if statusUpdates {
		cfg.StatusUpdates = true
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	palette, err := cfg.BuildPalette()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	local, err := transport.New("local", cfg.Local, mlog.Component("transport"))
	if err != nil {
		return fmt.Errorf("local transport: %w", err)
	}
	remote, err := transport.New("remote", cfg.Remote, mlog.Component("transport"))
	if err != nil {
		return fmt.Errorf("remote transport: %w", err)
	}

	bridge := serialbridge.Open(ctx, cfg.Serial, palette, mlog.Component("serial"))
	bridge.SetObserver(m)
	metrics.RegisterQueueDepth(reg, bridge.Len)

	opts := gateway.Options{
		Local:    local,
		Remote:   remote,
		Actuator: bridge,
		Palette:  palette,
		Metrics:  m,
		Logger:   logger,
	}

	var wg sync.WaitGroup
	if cfg.Web.Enabled {
		dash := web.NewServer(cfg.Web, reg, logger)
		opts.Dashboard = dash

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := dash.Run(ctx); err != nil {
				logger.Error("dashboard failed", "error", err)
			}
		}()
	}

	gw, err := gateway.New(cfg.Gateway(), opts)
	if err != nil {
		bridge.Close()
		return err
	}

	err = gw.Run(ctx)
	cancel()
	wg.Wait()
	return err
}

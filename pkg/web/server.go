// Package web serves a read-only status dashboard for the gateway: a JSON
// status endpoint, a health check, Prometheus metrics and a websocket
// stream of status snapshots.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teslashibe/go-moodlight/pkg/hub"
)

// Config configures the dashboard.
type Config struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:         false,
		Addr:            ":8080",
		ShutdownTimeout: 2 * time.Second,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return fmt.Errorf("addr %q: %w", c.Addr, err)
	}
	return nil
}

// Status is the dashboard's view of the gateway.
type Status struct {
	Mode            string    `json:"mode"`
	LastEmotion     string    `json:"last_emotion,omitempty"`
	Color           string    `json:"color,omitempty"`
	Brightness      int       `json:"brightness"`
	LocalConnected  bool      `json:"local_connected"`
	RemoteConnected bool      `json:"remote_connected"`
	SerialEnabled   bool      `json:"serial_enabled"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Server is the dashboard server.
type Server struct {
	cfg     Config
	app     *fiber.App
	logger  *slog.Logger
	hub     *hub.Hub
	started time.Time

	state   Status
	stateMu sync.RWMutex
}

// NewServer builds the dashboard. gatherer backs /metrics; nil uses the
// default Prometheus registry.
func NewServer(cfg Config, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger.With("component", "web"),
		hub:     hub.New("status", logger),
		started: time.Now(),
		state:   Status{Mode: "remote"},
	}

	app := fiber.New(fiber.Config{
		AppName:               "moodlight",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/health", s.handleHealth)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	s.hub.BroadcastJSON(s.state)
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Hub returns the status broadcast hub.
func (s *Server) Hub() *hub.Hub {
	return s.hub
}

// Run listens on the configured address until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.hub.Run(hubCtx)

	s.logger.Info("dashboard listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listener(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	stopHub()
	<-s.hub.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown dashboard: %w", err)
	}
	<-errCh
	s.logger.Info("dashboard stopped")
	return nil
}

// UpdateState applies update to the status and broadcasts the result.
func (s *Server) UpdateState(update func(*Status)) {
	s.stateMu.Lock()
	update(&s.state)
	s.state.UpdatedAt = time.Now()
	state := s.state
	s.stateMu.Unlock()

	if err := s.hub.BroadcastJSON(state); err != nil {
		s.logger.Warn("encode status", "error", err)
	}
}

// Snapshot returns a copy of the current status.
func (s *Server) Snapshot() Status {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

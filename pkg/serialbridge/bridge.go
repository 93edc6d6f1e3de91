package serialbridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.bug.st/serial"

	"github.com/teslashibe/go-moodlight/pkg/emotions"
	"github.com/teslashibe/go-moodlight/pkg/protocol"
)

// Observer receives bridge events, typically for metrics.
type Observer interface {
	ObserveSerialWrite(err error)
	ObserveQueueDrop()
}

// item is a queue entry. stop marks the end of the queue: the consumer
// returns when it dequeues one, and anything behind it is never written.
type item struct {
	cmd  protocol.Command
	stop bool
}

// Bridge owns the serial port and its command queue.
type Bridge struct {
	cfg      Config
	logger   *slog.Logger
	palette  *emotions.Palette
	observer Observer

	port    io.WriteCloser
	queue   chan item

	// portLock is held for each line written and by Close while it
	// releases the port. portClosed is set once the port is gone.
	portLock   chan struct{}
	portClosed atomic.Bool

	done    chan struct{}
	enabled bool

	closing   atomic.Bool
	closeOnce sync.Once
	closeErr  error

	// Stats
	enqueued    atomic.Int64
	dropped     atomic.Int64
	linesWrote  atomic.Int64
	writeErrors atomic.Int64
}

// Open opens the configured serial device and starts the bridge. If the
// bridge is disabled or the device cannot be opened, a disabled bridge is
// returned: Enqueue drops every command and Close does nothing.
func Open(ctx context.Context, cfg Config, palette *emotions.Palette, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}

	if !cfg.Enabled {
		logger.Info("serial bridge disabled by config")
		return Disabled(logger)
	}

	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		available, _ := ListPorts()
		logger.Warn("serial device unavailable, actuator disabled",
			"port", cfg.Port,
			"error", err,
			"available", available,
		)
		return Disabled(logger)
	}

	logger.Info("serial port opened", "port", cfg.Port, "baud", cfg.BaudRate)

	if cfg.SettleDelay > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(cfg.SettleDelay):
		}
	}

	return New(port, cfg, palette, logger)
}

// New starts a bridge writing to port.
func New(port io.WriteCloser, cfg Config, palette *emotions.Palette, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	if palette == nil {
		palette = emotions.DefaultPalette()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}
	if cfg.CloseGrace <= 0 {
		cfg.CloseGrace = DefaultConfig().CloseGrace
	}

	b := &Bridge{
		cfg:     cfg,
		logger:  logger,
		palette: palette,
		port:    port,
		queue:    make(chan item, cfg.QueueSize),
		portLock: make(chan struct{}, 1),
		done:     make(chan struct{}),
		enabled:  true,
	}

	go b.run()

	return b
}

// Disabled returns a bridge with no device.
func Disabled(logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	done := make(chan struct{})
	close(done)
	return &Bridge{logger: logger, done: done}
}

// SetObserver installs an observer. Call before enqueuing.
func (b *Bridge) SetObserver(o Observer) {
	b.observer = o
}

// Enabled reports whether a device is attached.
func (b *Bridge) Enabled() bool {
	return b.enabled
}

// Enqueue queues a command without blocking. It returns false when the
// bridge is disabled, shutting down, or the queue is full.
func (b *Bridge) Enqueue(cmd protocol.Command) bool {
	if !b.enabled || b.closing.Load() {
		return false
	}

	select {
	case b.queue <- item{cmd: cmd}:
		b.enqueued.Add(1)
		return true
	default:
		b.dropped.Add(1)
		if b.observer != nil {
			b.observer.ObserveQueueDrop()
		}
		b.logger.Warn("serial queue full, dropping command",
			"type", cmd.Type,
			"value", cmd.Value,
		)
		return false
	}
}

// Len returns the number of queued commands.
func (b *Bridge) Len() int {
	return len(b.queue)
}

// Done is closed when the consumer has stopped.
func (b *Bridge) Done() <-chan struct{} {
	return b.done
}

// run is the single consumer.
func (b *Bridge) run() {
	defer close(b.done)

	for it := range b.queue {
		if it.stop {
			b.logger.Debug("serial consumer stopping")
			return
		}
		b.execute(it.cmd)
		if b.portClosed.Load() {
			b.logger.Debug("serial port closed, consumer stopping")
			return
		}
	}
}

// execute writes a command's lines. A failed write is logged and the
// remaining lines of the command are still attempted.
func (b *Bridge) execute(cmd protocol.Command) {
	lines, err := Lines(cmd, b.palette)
	if err != nil {
		b.logger.Warn("skipping command", "type", cmd.Type, "error", err)
		return
	}

	for _, line := range lines {
		err := b.writeLine(line)
		if errors.Is(err, ErrPortClosed) {
			return
		}
		if b.observer != nil {
			b.observer.ObserveSerialWrite(err)
		}
		if err != nil {
			b.writeErrors.Add(1)
			b.logger.Error("serial write failed", "line", line[:len(line)-1], "error", err)
			continue
		}
		b.linesWrote.Add(1)
		b.logger.Debug("serial write", "line", line[:len(line)-1])
	}
}

// writeLine writes one line while holding the port.
func (b *Bridge) writeLine(line string) error {
	b.portLock <- struct{}{}
	defer func() { <-b.portLock }()

	if b.portClosed.Load() {
		return ErrPortClosed
	}
	_, err := io.WriteString(b.port, line)
	return err
}

// Close stops the consumer after the commands already queued, then closes
// the port. Commands enqueued after Close starts are dropped. Safe to call
// more than once.
func (b *Bridge) Close() error {
	if !b.enabled {
		return nil
	}

	b.closeOnce.Do(func() {
		b.closing.Store(true)
		b.closeErr = b.shutdown()
	})
	return b.closeErr
}

func (b *Bridge) shutdown() error {
	timer := time.NewTimer(b.cfg.ShutdownTimeout)
	defer timer.Stop()

	var err error

	select {
	case b.queue <- item{stop: true}:
		select {
		case <-b.done:
		case <-timer.C:
			err = ErrShutdownTimeout
		}
	case <-timer.C:
		err = ErrShutdownTimeout
	}

	if err != nil {
		b.logger.Warn("serial consumer did not stop in time, closing port")
	}

	// Wait for a write in progress to finish before the port goes away.
	grace := time.NewTimer(b.cfg.CloseGrace)
	defer grace.Stop()

	held := false
	select {
	case b.portLock <- struct{}{}:
		held = true
	case <-grace.C:
		b.logger.Warn("serial write still in progress, output may be truncated")
	}

	b.portClosed.Store(true)
	if cerr := b.port.Close(); cerr != nil {
		b.logger.Warn("serial port close failed", "error", cerr)
		if err == nil {
			err = fmt.Errorf("close serial port: %w", cerr)
		}
	}
	if held {
		<-b.portLock
	}

	b.logger.Info("serial bridge closed",
		"lines_written", b.linesWrote.Load(),
		"write_errors", b.writeErrors.Load(),
	)
	return err
}

// ListPorts returns the serial devices present on this machine.
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}

// Stats returns bridge statistics.
func (b *Bridge) Stats() Stats {
	return Stats{
		Enabled:      b.enabled,
		Queued:       len(b.queue),
		Enqueued:     b.enqueued.Load(),
		Dropped:      b.dropped.Load(),
		LinesWritten: b.linesWrote.Load(),
		WriteErrors:  b.writeErrors.Load(),
	}
}

// Stats contains bridge statistics.
type Stats struct {
	Enabled      bool  `json:"enabled"`
	Queued       int   `json:"queued"`
	Enqueued     int64 `json:"enqueued"`
	Dropped      int64 `json:"dropped"`
	LinesWritten int64 `json:"lines_written"`
	WriteErrors  int64 `json:"write_errors"`
}

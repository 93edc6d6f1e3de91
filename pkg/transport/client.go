package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// Message is one payload received on a subscription.
type Message struct {
	Topic    string
	Payload  []byte
	Received time.Time
}

// Client provides a high-level interface to one MQTT broker.
type Client struct {
	cfg    Config
	name   string
	logger *slog.Logger

	mu     sync.RWMutex
	conn   mqtt.Client
	subs   map[string]chan Message
	closed bool
	done   chan struct{}

	// Stats
	messagesSent     atomic.Int64
	messagesReceived atomic.Int64
	publishErrors    atomic.Int64
	connectAttempts  atomic.Int64
	connectionLost   atomic.Int64
	connected        atomic.Bool
}

// New creates a new client. name labels the client in logs ("local",
// "remote"). Call Connect to establish the session.
func New(name string, cfg Config, logger *slog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		cfg:    cfg,
		name:   name,
		logger: logger.With("transport", name),
		subs:   make(map[string]chan Message),
		done:   make(chan struct{}),
	}, nil
}

// Name returns the client's label.
func (c *Client) Name() string {
	return c.name
}

// Connect makes one connection attempt. Once connected, the broker
// library reconnects automatically and subscriptions are restored.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.conn != nil && c.conn.IsConnectionOpen() {
		c.mu.Unlock()
		return nil // Already connected
	}
	c.mu.Unlock()

	c.connectAttempts.Add(1)

	clientID := fmt.Sprintf("%s-%s-%s", c.cfg.ClientID, c.name, uuid.NewString()[:8])

	opts := mqtt.NewClientOptions().
		AddBroker(c.cfg.Broker).
		SetClientID(clientID).
		SetKeepAlive(c.cfg.KeepAlive).
		SetConnectTimeout(c.cfg.ConnectTimeout).
		SetCleanSession(true).
		SetOrderMatters(true).
		SetConnectRetry(false).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(c.cfg.ReconnectInterval)

	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.connected.Store(false)
		c.connectionLost.Add(1)
		c.logger.Warn("connection lost, will auto-reconnect",
			"broker", c.cfg.Broker,
			"error", err,
		)
	})

	c.logger.Info("connecting to broker",
		"broker", c.cfg.Broker,
		"client_id", clientID,
	)

	conn := mqtt.NewClient(opts)
	if err := c.wait(ctx, conn.Connect(), c.cfg.ConnectTimeout); err != nil {
		return fmt.Errorf("connect %s: %w", c.cfg.Broker, err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Disconnect(0)
		return ErrClosed
	}
	c.conn = conn
	c.mu.Unlock()

	c.connected.Store(true)
	return nil
}

// ConnectWithRetry connects, retrying every ReconnectInterval until
// MaxConnectAttempts is reached or ctx is done.
func (c *Client) ConnectWithRetry(ctx context.Context) error {
	attempts := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := c.Connect(ctx)
		if err == nil {
			return nil
		}
		if err == ErrClosed {
			return err
		}

		attempts++

		if c.cfg.MaxConnectAttempts > 0 && attempts >= c.cfg.MaxConnectAttempts {
			return fmt.Errorf("max connect attempts (%d) reached: %w", c.cfg.MaxConnectAttempts, err)
		}

		c.logger.Warn("broker connection failed, retrying",
			"error", err,
			"attempt", attempts,
			"retry_in", c.cfg.ReconnectInterval,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.ReconnectInterval):
		}
	}
}

// onConnect runs on every (re)connection and restores subscriptions.
func (c *Client) onConnect(conn mqtt.Client) {
	c.connected.Store(true)
	c.logger.Info("connected to broker", "broker", c.cfg.Broker)

	c.mu.RLock()
	topics := make([]string, 0, len(c.subs))
	for topic := range c.subs {
		topics = append(topics, topic)
	}
	c.mu.RUnlock()

	for _, topic := range topics {
		token := conn.Subscribe(topic, c.cfg.QoS, c.deliver)
		go func(topic string) {
			if !token.WaitTimeout(c.cfg.ConnectTimeout) || token.Error() != nil {
				c.logger.Warn("resubscribe failed", "topic", topic, "error", token.Error())
			}
		}(topic)
	}
}

// IsConnected returns true if the client is connected.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// Publish publishes a payload and waits for the broker library to
// accept it.
func (c *Client) Publish(topic string, payload []byte) error {
	conn, err := c.session()
	if err != nil {
		c.publishErrors.Add(1)
		return err
	}

	token := conn.Publish(topic, c.cfg.QoS, false, payload)
	if err := c.wait(context.Background(), token, c.cfg.PublishTimeout); err != nil {
		c.publishErrors.Add(1)
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	c.messagesSent.Add(1)
	return nil
}

// Subscribe subscribes to a topic. Messages arrive on the returned
// channel in broker delivery order. The channel is never closed; stop
// reading when Close is called or your own context ends.
func (c *Client) Subscribe(topic string) (<-chan Message, error) {
	conn, err := c.session()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if _, exists := c.subs[topic]; exists {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrAlreadySubscribed, topic)
	}
	ch := make(chan Message, c.cfg.Buffer)
	c.subs[topic] = ch
	c.mu.Unlock()

	if err := c.wait(context.Background(), conn.Subscribe(topic, c.cfg.QoS, c.deliver), c.cfg.ConnectTimeout); err != nil {
		c.mu.Lock()
		delete(c.subs, topic)
		c.mu.Unlock()
		return nil, fmt.Errorf("subscribe to %s: %w", topic, err)
	}

	c.logger.Info("subscribed to topic", "topic", topic)

	return ch, nil
}

// deliver hands a broker message to its subscription channel. It blocks
// when the channel is full so ordering is kept, and gives up once the
// client is closed.
func (c *Client) deliver(_ mqtt.Client, m mqtt.Message) {
	c.mu.RLock()
	ch, ok := c.subs[m.Topic()]
	c.mu.RUnlock()
	if !ok {
		c.logger.Debug("message for unknown subscription", "topic", m.Topic())
		return
	}

	payload := make([]byte, len(m.Payload()))
	copy(payload, m.Payload())

	select {
	case ch <- Message{Topic: m.Topic(), Payload: payload, Received: time.Now()}:
		c.messagesReceived.Add(1)
	case <-c.done:
	}
}

// Done is closed when the client is closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close unsubscribes and disconnects. It is safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)

	conn := c.conn
	topics := make([]string, 0, len(c.subs))
	for topic := range c.subs {
		topics = append(topics, topic)
	}
	c.mu.Unlock()

	c.connected.Store(false)

	if conn == nil {
		return nil
	}

	if len(topics) > 0 && conn.IsConnectionOpen() {
		token := conn.Unsubscribe(topics...)
		if !token.WaitTimeout(c.cfg.PublishTimeout) {
			c.logger.Warn("unsubscribe timed out", "topics", topics)
		} else if err := token.Error(); err != nil {
			c.logger.Warn("unsubscribe failed", "topics", topics, "error", err)
		}
	}

	conn.Disconnect(250)
	c.logger.Info("disconnected from broker", "broker", c.cfg.Broker)
	return nil
}

// session returns the live connection.
func (c *Client) session() (mqtt.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, ErrClosed
	}
	if c.conn == nil {
		return nil, ErrNotConnected
	}
	return c.conn, nil
}

// wait blocks until the token completes, ctx is done, or timeout passes.
func (c *Client) wait(ctx context.Context, token mqtt.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTimeout
	}
}

// Stats returns client statistics.
func (c *Client) Stats() ClientStats {
	return ClientStats{
		Connected:        c.connected.Load(),
		MessagesSent:     c.messagesSent.Load(),
		MessagesReceived: c.messagesReceived.Load(),
		PublishErrors:    c.publishErrors.Load(),
		ConnectAttempts:  c.connectAttempts.Load(),
		ConnectionLost:   c.connectionLost.Load(),
	}
}

// ClientStats contains client statistics.
type ClientStats struct {
	Connected        bool  `json:"connected"`
	MessagesSent     int64 `json:"messages_sent"`
	MessagesReceived int64 `json:"messages_received"`
	PublishErrors    int64 `json:"publish_errors"`
	ConnectAttempts  int64 `json:"connect_attempts"`
	ConnectionLost   int64 `json:"connection_lost"`
}

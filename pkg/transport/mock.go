package transport

import (
	"fmt"
	"sync"
	"time"
)

// Mock is an in-memory transport for tests. It records every publish and
// lets tests inject messages into subscriptions. With Loopback set,
// publishes are also delivered to matching subscriptions, like a broker.
type Mock struct {
	// Loopback delivers published payloads to this mock's own subscribers.
	Loopback bool

	mu           sync.Mutex
	published    []Message
	subs         map[string]chan Message
	publishErr   error
	subscribeErr error
	closed       bool
	done         chan struct{}
}

// NewMock creates a mock transport.
func NewMock() *Mock {
	return &Mock{
		subs: make(map[string]chan Message),
		done: make(chan struct{}),
	}
}

// SetPublishError makes every later Publish fail with err.
func (m *Mock) SetPublishError(err error) {
	m.mu.Lock()
	m.publishErr = err
	m.mu.Unlock()
}

// SetSubscribeError makes every later Subscribe fail with err.
func (m *Mock) SetSubscribeError(err error) {
	m.mu.Lock()
	m.subscribeErr = err
	m.mu.Unlock()
}

// Publish records the payload.
func (m *Mock) Publish(topic string, payload []byte) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.publishErr != nil {
		err := m.publishErr
		m.mu.Unlock()
		return err
	}
	msg := Message{Topic: topic, Payload: append([]byte(nil), payload...), Received: time.Now()}
	m.published = append(m.published, msg)
	loopback := m.Loopback
	ch := m.subs[topic]
	m.mu.Unlock()

	if loopback && ch != nil {
		select {
		case ch <- msg:
		case <-m.done:
		}
	}
	return nil
}

// Subscribe returns a channel fed by Inject (and Publish with Loopback).
func (m *Mock) Subscribe(topic string) (<-chan Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if m.subscribeErr != nil {
		return nil, m.subscribeErr
	}
	if _, exists := m.subs[topic]; exists {
		return nil, fmt.Errorf("%w: %s", ErrAlreadySubscribed, topic)
	}
	ch := make(chan Message, 64)
	m.subs[topic] = ch
	return ch, nil
}

// Inject delivers a payload to the topic's subscriber. It returns false
// when nobody subscribed or the mock is closed.
func (m *Mock) Inject(topic string, payload []byte) bool {
	m.mu.Lock()
	ch := m.subs[topic]
	closed := m.closed
	m.mu.Unlock()

	if ch == nil || closed {
		return false
	}

	select {
	case ch <- Message{Topic: topic, Payload: payload, Received: time.Now()}:
		return true
	case <-m.done:
		return false
	}
}

// Published returns the payloads published on a topic, in order.
func (m *Mock) Published(topic string) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out [][]byte
	for _, msg := range m.published {
		if msg.Topic == topic {
			out = append(out, msg.Payload)
		}
	}
	return out
}

// Subscribed reports whether a topic has a subscriber.
func (m *Mock) Subscribed(topic string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.subs[topic]
	return ok
}

// Done is closed when the mock is closed.
func (m *Mock) Done() <-chan struct{} {
	return m.done
}

// Close marks the mock closed. It is safe to call more than once.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

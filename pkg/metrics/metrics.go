// Package metrics exposes gateway counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons.
const (
	ReasonMalformed  = "malformed"
	ReasonLocalMode  = "local_mode"
	ReasonRemoteMode = "remote_mode"
	ReasonNoCommand  = "no_command"
	ReasonQueueFull  = "queue_full"
	ReasonPublish    = "publish_error"
)

// Metrics holds the gateway collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	MessagesReceived *prometheus.CounterVec
	Forwarded        prometheus.Counter
	Dropped          *prometheus.CounterVec
	ModeSwitches     prometheus.Counter
	Mode             prometheus.Gauge
	EmotionsEmitted  *prometheus.CounterVec
	SerialWrites     prometheus.Counter
	SerialErrors     prometheus.Counter
	StatusUpdates    prometheus.Counter
}

// New registers the collectors on reg. A nil reg uses a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		MessagesReceived: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moodlight_messages_received_total",
				Help: "Messages received per transport and kind",
			},
			[]string{"transport", "kind"},
		),
		Forwarded: f.NewCounter(
			prometheus.CounterOpts{
				Name: "moodlight_forwarded_total",
				Help: "Remote data messages relayed to the local transport",
			},
		),
		Dropped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moodlight_dropped_total",
				Help: "Messages dropped, by reason",
			},
			[]string{"reason"},
		),
		ModeSwitches: f.NewCounter(
			prometheus.CounterOpts{
				Name: "moodlight_mode_switches_total",
				Help: "Routing mode transitions",
			},
		),
		Mode: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "moodlight_mode_local",
				Help: "1 when the local transport is authoritative, 0 when remote",
			},
		),
		EmotionsEmitted: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moodlight_emotions_emitted_total",
				Help: "Smoothed emotion events published, by label",
			},
			[]string{"emotion"},
		),
		SerialWrites: f.NewCounter(
			prometheus.CounterOpts{
				Name: "moodlight_serial_writes_total",
				Help: "Lines written to the serial device",
			},
		),
		SerialErrors: f.NewCounter(
			prometheus.CounterOpts{
				Name: "moodlight_serial_write_errors_total",
				Help: "Failed serial writes",
			},
		),
		StatusUpdates: f.NewCounter(
			prometheus.CounterOpts{
				Name: "moodlight_status_updates_total",
				Help: "Status updates published upstream",
			},
		),
	}
}

// RegisterQueueDepth exposes a queue length as a gauge.
func RegisterQueueDepth(reg prometheus.Registerer, depth func() int) {
	promauto.With(reg).NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "moodlight_serial_queue_depth",
			Help: "Commands waiting in the serial queue",
		},
		func() float64 { return float64(depth()) },
	)
}

// ObserveMessage counts a received message.
func (m *Metrics) ObserveMessage(transport, kind string) {
	if m == nil {
		return
	}
	m.MessagesReceived.WithLabelValues(transport, kind).Inc()
}

// ObserveForward counts a relayed message.
func (m *Metrics) ObserveForward() {
	if m == nil {
		return
	}
	m.Forwarded.Inc()
}

// ObserveDrop counts a dropped message.
func (m *Metrics) ObserveDrop(reason string) {
	if m == nil {
		return
	}
	m.Dropped.WithLabelValues(reason).Inc()
}

// ObserveMode records the current mode. changed counts a transition.
func (m *Metrics) ObserveMode(local, changed bool) {
	if m == nil {
		return
	}
	if changed {
		m.ModeSwitches.Inc()
	}
	if local {
		m.Mode.Set(1)
	} else {
		m.Mode.Set(0)
	}
}

// ObserveEmit counts a published emotion event.
func (m *Metrics) ObserveEmit(emotion string) {
	if m == nil {
		return
	}
	m.EmotionsEmitted.WithLabelValues(emotion).Inc()
}

// ObserveStatusUpdate counts a status update sent upstream.
func (m *Metrics) ObserveStatusUpdate() {
	if m == nil {
		return
	}
	m.StatusUpdates.Inc()
}

// ObserveSerialWrite counts a serial write.
func (m *Metrics) ObserveSerialWrite(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.SerialErrors.Inc()
		return
	}
	m.SerialWrites.Inc()
}

// ObserveQueueDrop counts a command dropped by a full serial queue.
func (m *Metrics) ObserveQueueDrop() {
	m.ObserveDrop(ReasonQueueFull)
}

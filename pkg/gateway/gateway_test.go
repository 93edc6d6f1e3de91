package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-moodlight/pkg/emotions"
	"github.com/teslashibe/go-moodlight/pkg/metrics"
	"github.com/teslashibe/go-moodlight/pkg/mode"
	"github.com/teslashibe/go-moodlight/pkg/protocol"
	"github.com/teslashibe/go-moodlight/pkg/transport"
	"github.com/teslashibe/go-moodlight/pkg/web"
)

type fakeActuator struct {
	mu       sync.Mutex
	commands []protocol.Command
	closed   bool
}

func (a *fakeActuator) Enqueue(cmd protocol.Command) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.commands = append(a.commands, cmd)
	return true
}

func (a *fakeActuator) Enabled() bool { return true }

func (a *fakeActuator) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

func (a *fakeActuator) received() []protocol.Command {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]protocol.Command(nil), a.commands...)
}

func (a *fakeActuator) isClosed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

type fakeDashboard struct {
	mu    sync.Mutex
	state web.Status
}

func (d *fakeDashboard) UpdateState(update func(*web.Status)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	update(&d.state)
}

func (d *fakeDashboard) snapshot() web.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

type fixture struct {
	gw        *Gateway
	local     *transport.Mock
	remote    *transport.Mock
	actuator  *fakeActuator
	dashboard *fakeDashboard
	metrics   *metrics.Metrics
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		local:     transport.NewMock(),
		remote:    transport.NewMock(),
		actuator:  &fakeActuator{},
		dashboard: &fakeDashboard{},
		metrics:   metrics.New(prometheus.NewRegistry()),
	}
	gw, err := New(cfg, Options{
		Local:     f.local,
		Remote:    f.remote,
		Actuator:  f.actuator,
		Metrics:   f.metrics,
		Dashboard: f.dashboard,
	})
	require.NoError(t, err)
	f.gw = gw
	return f
}

var (
	controlLocal  = []byte(`{"source":"web","ai":true}`)
	controlRemote = []byte(`{"source":"web","ai":false}`)
	happyEvent    = []byte(`{"source":"ai","type":"emotion","emotion":"Happy"}`)
)

func TestNew_Validation(t *testing.T) {
	_, err := New(DefaultConfig(), Options{Local: transport.NewMock()})
	assert.ErrorIs(t, err, ErrNoTransport)

	cfg := DefaultConfig()
	cfg.Topics.Emotion = ""
	_, err = New(cfg, Options{Local: transport.NewMock(), Remote: transport.NewMock()})
	assert.Error(t, err)
}

func TestHandleRemote_ForwardsVerbatimInRemoteMode(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	payload := []byte(`{"emotion": "Sad",  "extra": [1, 2]}`)
	f.gw.HandleRemote(payload)

	got := f.local.Published(transport.TopicEmotion)
	require.Len(t, got, 1)
	assert.Equal(t, payload, got[0])
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Forwarded))
}

func TestHandleRemote_DrivesActuatorInRemoteMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StatusUpdates = true
	f := newFixture(t, cfg)

	f.gw.HandleRemote(happyEvent)
	f.gw.HandleRemote([]byte(`{"source":"web","type":"color","value":"#00FF00"}`))
	f.gw.HandleRemote([]byte(`{"source":"web","type":"brightness","value":200}`))

	assert.Equal(t, []protocol.Command{
		protocol.NewEmotionCommand(emotions.Happy),
		{Type: protocol.TypeColor, Value: "#00FF00"},
		{Type: protocol.TypeBrightness, Value: "200"},
	}, f.actuator.received())
	assert.Len(t, f.local.Published(transport.TopicEmotion), 3)

	updates := f.remote.Published(transport.TopicUpdate)
	require.Len(t, updates, 1, "only emotion commands report upstream")
	assert.JSONEq(t, `{"color":"#FFFF00","brightness":90}`, string(updates[0]))

	st := f.dashboard.snapshot()
	assert.Equal(t, "Happy", st.LastEmotion)
	assert.Equal(t, "#00FF00", st.Color)
	assert.Equal(t, 200, st.Brightness)
}

func TestHandleRemote_ControlNeverActuates(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	f.gw.HandleRemote(controlLocal)
	f.gw.HandleRemote(controlRemote)

	assert.Empty(t, f.actuator.received())
}

func TestHandleRemote_NoActuationInLocalMode(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.gw.HandleRemote(controlLocal)

	f.gw.HandleRemote(happyEvent)

	assert.Empty(t, f.actuator.received())
}

func TestHandleRemote_DataWithoutCommandOnlyForwarded(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	f.gw.HandleRemote([]byte(`{"source":"ai","note":"hello"}`))

	assert.Len(t, f.local.Published(transport.TopicEmotion), 1)
	assert.Empty(t, f.actuator.received())
}

func TestHandleRemote_ActuatesWhenForwardFails(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.local.SetPublishError(errors.New("broker gone"))

	f.gw.HandleRemote(happyEvent)

	assert.Len(t, f.actuator.received(), 1)
}

func TestHandleRemote_ControlSwitchesMode(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	f.gw.HandleRemote(controlLocal)
	assert.Equal(t, mode.Local, f.gw.Mode().Current())
	assert.Empty(t, f.local.Published(transport.TopicEmotion), "control messages are never forwarded")
	assert.Equal(t, "local", f.dashboard.snapshot().Mode)

	f.gw.HandleRemote(controlLocal)
	assert.Equal(t, uint64(1), f.gw.Mode().Changes(), "repeat control is idempotent")

	f.gw.HandleRemote(controlRemote)
	assert.Equal(t, mode.Remote, f.gw.Mode().Current())
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.ModeSwitches))
}

func TestHandleRemote_StringFlag(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	f.gw.HandleRemote([]byte(`{"source":"web","ai":"TRUE"}`))
	assert.Equal(t, mode.Local, f.gw.Mode().Current())
}

func TestHandleRemote_DropsDataInLocalMode(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.gw.HandleRemote(controlLocal)

	f.gw.HandleRemote(happyEvent)

	assert.Empty(t, f.local.Published(transport.TopicEmotion))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Dropped.WithLabelValues(metrics.ReasonLocalMode)))
}

func TestHandleRemote_Malformed(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	f.gw.HandleRemote([]byte(`{not json`))

	assert.Empty(t, f.local.Published(transport.TopicEmotion))
	assert.Equal(t, mode.Remote, f.gw.Mode().Current())
	assert.EqualValues(t, 1, f.gw.Stats().Malformed)
}

func TestHandleRemote_WebMessageWithoutFlagIsData(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	f.gw.HandleRemote([]byte(`{"source":"web","emotion":"Fear"}`))

	assert.Len(t, f.local.Published(transport.TopicEmotion), 1)
	assert.Equal(t, mode.Remote, f.gw.Mode().Current())
}

func TestHandleRemote_PublishFailure(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.local.SetPublishError(errors.New("broker gone"))

	f.gw.HandleRemote(happyEvent)

	assert.EqualValues(t, 0, f.gw.Stats().Forwarded)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Dropped.WithLabelValues(metrics.ReasonPublish)))
}

func TestHandleLocal_IgnoredInRemoteMode(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	f.gw.HandleLocal(happyEvent)

	assert.Empty(t, f.actuator.received())
}

func TestHandleLocal_EmotionDrivesActuator(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StatusUpdates = true
	f := newFixture(t, cfg)
	f.gw.HandleRemote(controlLocal)

	f.gw.HandleLocal(happyEvent)

	assert.Equal(t, []protocol.Command{protocol.NewEmotionCommand(emotions.Happy)}, f.actuator.received())

	updates := f.remote.Published(transport.TopicUpdate)
	require.Len(t, updates, 1)
	assert.JSONEq(t, `{"color":"#FFFF00","brightness":90}`, string(updates[0]))

	st := f.dashboard.snapshot()
	assert.Equal(t, "Happy", st.LastEmotion)
	assert.Equal(t, "#FFFF00", st.Color)
	assert.Equal(t, 90, st.Brightness)
}

func TestHandleLocal_NoStatusUpdateByDefault(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.gw.HandleRemote(controlLocal)

	f.gw.HandleLocal(happyEvent)

	assert.Empty(t, f.remote.Published(transport.TopicUpdate))
}

func TestHandleLocal_DirectCommands(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.gw.HandleRemote(controlLocal)

	f.gw.HandleLocal([]byte(`{"type":"color","value":"#00FF00"}`))
	f.gw.HandleLocal([]byte(`{"type":"brightness","value":120}`))

	assert.Equal(t, []protocol.Command{
		{Type: protocol.TypeColor, Value: "#00FF00"},
		{Type: protocol.TypeBrightness, Value: "120"},
	}, f.actuator.received())

	st := f.dashboard.snapshot()
	assert.Equal(t, "#00FF00", st.Color)
	assert.Equal(t, 120, st.Brightness)
}

func TestHandleLocal_Malformed(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.gw.HandleRemote(controlLocal)

	f.gw.HandleLocal([]byte(`garbage`))
	f.gw.HandleLocal([]byte(`{"source":"ai"}`))

	assert.Empty(t, f.actuator.received())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Dropped.WithLabelValues(metrics.ReasonMalformed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Dropped.WithLabelValues(metrics.ReasonNoCommand)))
}

func runGateway(t *testing.T, f *fixture) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- f.gw.Run(ctx) }()
	require.Eventually(t, func() bool {
		return f.remote.Subscribed(transport.TopicEmotion) && f.local.Subscribed(transport.TopicEmotion)
	}, time.Second, time.Millisecond)
	return cancel, errCh
}

func waitStopped(t *testing.T, errCh <-chan error) {
	t.Helper()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("gateway did not stop")
	}
}

func TestRun_EndToEnd(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	cancel, errCh := runGateway(t, f)

	require.Eventually(t, func() bool {
		st := f.dashboard.snapshot()
		return st.RemoteConnected && st.LocalConnected && st.SerialEnabled
	}, time.Second, time.Millisecond)

	require.True(t, f.remote.Inject(transport.TopicEmotion, happyEvent))
	require.Eventually(t, func() bool {
		return len(f.local.Published(transport.TopicEmotion)) == 1
	}, time.Second, time.Millisecond)

	require.True(t, f.remote.Inject(transport.TopicEmotion, controlLocal))
	require.Eventually(t, f.gw.Mode().IsLocal, time.Second, time.Millisecond)

	require.True(t, f.local.Inject(transport.TopicEmotion, []byte(`{"emotion":"Sad"}`)))
	require.Eventually(t, func() bool { return len(f.actuator.received()) == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, []protocol.Command{
		protocol.NewEmotionCommand(emotions.Happy),
		{Type: protocol.TypeEmotion, Value: "Sad"},
	}, f.actuator.received())

	cancel()
	waitStopped(t, errCh)

	assert.True(t, f.local.Closed())
	assert.True(t, f.remote.Closed())
	assert.True(t, f.actuator.isClosed())
}

func TestRun_RemoteModeActuatesOnce(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.local.Loopback = true
	cancel, errCh := runGateway(t, f)

	require.True(t, f.remote.Inject(transport.TopicEmotion, happyEvent))
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(f.metrics.Dropped.WithLabelValues(metrics.ReasonRemoteMode)) == 1
	}, time.Second, time.Millisecond, "forwarded copy reaches the local listener and is ignored")

	assert.Len(t, f.local.Published(transport.TopicEmotion), 1)
	require.Eventually(t, func() bool { return len(f.actuator.received()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []protocol.Command{protocol.NewEmotionCommand(emotions.Happy)}, f.actuator.received())

	cancel()
	waitStopped(t, errCh)
}

func TestRun_SubscribeFailureIsolated(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.remote.SetSubscribeError(errors.New("broker unreachable"))
	f.gw.Mode().Apply(true)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- f.gw.Run(ctx) }()

	require.Eventually(t, func() bool { return f.local.Subscribed(transport.TopicEmotion) }, time.Second, time.Millisecond)
	require.True(t, f.local.Inject(transport.TopicEmotion, happyEvent))
	require.Eventually(t, func() bool { return len(f.actuator.received()) == 1 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return f.dashboard.snapshot().LocalConnected }, time.Second, time.Millisecond)
	assert.False(t, f.dashboard.snapshot().RemoteConnected)

	cancel()
	waitStopped(t, errCh)
}

func TestRun_Twice(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	cancel, errCh := runGateway(t, f)

	assert.ErrorIs(t, f.gw.Run(context.Background()), ErrAlreadyRunning)

	cancel()
	waitStopped(t, errCh)
}
